package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

func NewMemcached(server string) (*memcache.Client, error) {
	client := memcache.New(server)
	client.Timeout = time.Second
	if err := client.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to connect memcached")
	}
	return client, nil
}
