package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/totegamma/remotefollow/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PRIVATE_KEY", "PUBLIC_KEY", "PORT", "port"} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
nodeInfo:
  privatekey: file-private
  publickey: file-public
  actorLayout: actor
  name: Follow Me
server:
  port: 8080
  requestTimeout: 5s
  cacheTTL: 1m
  sessionBackend: redis
  redisAddr: localhost:6379
  trustProxy: true
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if config.NodeInfo.PrivateKey != "file-private" || config.NodeInfo.PublicKey != "file-public" {
		t.Fatalf("unexpected keys %+v", config.NodeInfo)
	}
	if config.NodeInfo.ActorLayout != domain.ActorLayoutActor {
		t.Fatalf("unexpected layout %q", config.NodeInfo.ActorLayout)
	}
	if config.Server.Port != 8080 || config.Server.RequestTimeout != 5*time.Second || config.Server.CacheTTL != time.Minute {
		t.Fatalf("unexpected server config %+v", config.Server)
	}
	if config.Server.SessionBackend != SessionRedis || !config.Server.TrustProxy {
		t.Fatalf("unexpected server config %+v", config.Server)
	}

	dc := config.Domain()
	if dc.PublicKey != "file-public" || dc.Name != "Follow Me" || dc.ActorLayout != domain.ActorLayoutActor {
		t.Fatalf("unexpected domain config %+v", dc)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRIVATE_KEY", "env-private")
	t.Setenv("PUBLIC_KEY", "env-public")
	t.Setenv("port", "4000")

	path := writeConfig(t, "nodeInfo:\n  privatekey: file-private\n")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.NodeInfo.PrivateKey != "env-private" || config.NodeInfo.PublicKey != "env-public" {
		t.Fatalf("expected env keys, got %+v", config.NodeInfo)
	}
	if config.Server.Port != 4000 {
		t.Fatalf("expected port from env, got %d", config.Server.Port)
	}

	t.Setenv("PORT", "5000")
	config, err = Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.Server.Port != 5000 {
		t.Fatalf("expected PORT to win, got %d", config.Server.Port)
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	config, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.Server.Port != 3000 || config.Server.RequestTimeout != 3*time.Second {
		t.Fatalf("unexpected defaults %+v", config.Server)
	}
	if config.Server.SessionBackend != SessionMemory || config.NodeInfo.ActorLayout != domain.ActorLayoutRoot {
		t.Fatalf("unexpected defaults %+v", config)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)

	for _, body := range []string{
		"nodeInfo:\n  actorLayout: nested\n",
		"server:\n  sessionBackend: postgres\n",
		"server:\n  sessionBackend: memcached\n",
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%q: expected an error", body)
		}
	}

	t.Setenv("PORT", "http")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected an invalid port to fail")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected a missing file to fail")
	}
}
