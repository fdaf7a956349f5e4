// Package redis wraps the go-redis client so stores depend on a small
// interface and tests can point it at miniredis.
package redis

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis the draft store needs; every go-redis
// client satisfies it.
type Client interface {
	redis.UniversalClient
}

type Options struct {
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	MaxRetries   int
}

// NewClient creates a client for a single Redis instance. Connections are
// opened lazily.
func NewClient(addr string, opts *Options) (Client, error) {
	if addr == "" {
		return nil, errors.New("redis: address is required")
	}
	if opts == nil {
		opts = &Options{}
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		MaxRetries:   opts.MaxRetries,
	}), nil
}

// IsNil reports whether err is the go-redis "key does not exist" result.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
