// Package redisconn builds the shared go-redis client.
package redisconn

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Options describes a single Redis node.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Open creates a client and verifies it with PING.
func Open(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
