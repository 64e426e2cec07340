package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ljmarquez/latch"
)

const sessionKeyPrefix = "latch:session:"

// SessionCache is a Redis-backed session cache. Entries expire on their
// own via key TTL, so a cold restart simply starts with an empty cache.
type SessionCache struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ latch.Cache = (*SessionCache)(nil)

func NewSessionCache(client *goredis.Client, ttl time.Duration) *SessionCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) key(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

func (c *SessionCache) Get(tokenHash string) (*latch.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.key(tokenHash)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, latch.ErrCacheNotFound
	}
	if err != nil {
		return nil, err
	}

	var session latch.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("unmarshal cached session: %w", err)
	}

	return &session, nil
}

func (c *SessionCache) Set(tokenHash string, session *latch.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, c.key(tokenHash), data, c.ttl).Err()
}

func (c *SessionCache) Delete(tokenHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return c.client.Del(ctx, c.key(tokenHash)).Err()
}

func (c *SessionCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	iter := c.client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
