package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/remotefollow/internal/domain"
)

const (
	defaultPort           = 3000
	defaultRequestTimeout = 3 * time.Second
)

type SessionBackend string

const (
	SessionMemory    SessionBackend = "memory"
	SessionRedis     SessionBackend = "redis"
	SessionMemcached SessionBackend = "memcached"
)

type Config struct {
	NodeInfo NodeInfo `yaml:"nodeInfo"`
	Server   Server   `yaml:"server"`
}

type NodeInfo struct {
	PrivateKey        string             `yaml:"privatekey"`
	PublicKey         string             `yaml:"publickey"`
	ActorLayout       domain.ActorLayout `yaml:"actorLayout"`
	Name              string             `yaml:"name"`
	PreferredUsername string             `yaml:"preferredUsername"`
	UserAgent         string             `yaml:"userAgent"`
}

type Server struct {
	Port           int            `yaml:"port"`
	LogLevel       string         `yaml:"logLevel"`
	RequestTimeout time.Duration  `yaml:"requestTimeout"`
	CacheTTL       time.Duration  `yaml:"cacheTTL"`
	SessionBackend SessionBackend `yaml:"sessionBackend"`
	RedisAddr      string         `yaml:"redisAddr"`
	RedisPassword  string         `yaml:"redisPassword"`
	RedisDB        int            `yaml:"redisDB"`
	MemcachedAddr  string         `yaml:"memcachedAddr"`
	EnableTrace    bool           `yaml:"enableTrace"`
	TraceEndpoint  string         `yaml:"traceEndpoint"`
	TrustProxy     bool           `yaml:"trustProxy"`
}

// Domain returns the part of the configuration the usecases need.
func (c Config) Domain() domain.Config {
	return domain.Config{
		PublicKey:         c.NodeInfo.PublicKey,
		ActorLayout:       c.NodeInfo.ActorLayout,
		Name:              c.NodeInfo.Name,
		PreferredUsername: c.NodeInfo.PreferredUsername,
	}
}

// Load reads a YAML config file. Environment variables override the file.
func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to open config")
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return finalize(config)
}

// LoadFromEnv builds a config from the environment alone.
func LoadFromEnv() (Config, error) {
	return finalize(Config{})
}

func finalize(config Config) (Config, error) {
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		config.NodeInfo.PrivateKey = v
	}
	if v := os.Getenv("PUBLIC_KEY"); v != "" {
		config.NodeInfo.PublicKey = v
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = os.Getenv("port")
	}
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid port %q", port)
		}
		config.Server.Port = p
	}

	if config.Server.Port == 0 {
		config.Server.Port = defaultPort
	}
	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = defaultRequestTimeout
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.NodeInfo.ActorLayout == "" {
		config.NodeInfo.ActorLayout = domain.ActorLayoutRoot
	}
	if !config.NodeInfo.ActorLayout.Valid() {
		return Config{}, errors.Errorf("unknown actorLayout %q", config.NodeInfo.ActorLayout)
	}

	switch config.Server.SessionBackend {
	case "":
		config.Server.SessionBackend = SessionMemory
	case SessionMemory:
	case SessionRedis:
		if config.Server.RedisAddr == "" {
			return Config{}, errors.New("sessionBackend redis needs redisAddr")
		}
	case SessionMemcached:
		if config.Server.MemcachedAddr == "" {
			return Config{}, errors.New("sessionBackend memcached needs memcachedAddr")
		}
	default:
		return Config{}, errors.Errorf("unknown sessionBackend %q", config.Server.SessionBackend)
	}

	return config, nil
}
