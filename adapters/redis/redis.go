// Package redis provides Redis-backed adapters: a session cache for the
// session manager's fast path and a reset-token store whose TTL and
// single-use semantics map directly onto Redis primitives.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const opTimeout = 2 * time.Second

// Connect dials Redis and verifies the connection with a ping.
func Connect(addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
