package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tv4play:http:"

// RedisStore shares the response cache between several adapter instances.
// Redis expiry enforces maxAge; freshness per TTL class is still decided by
// the caller from Entry.StoredAt.
type RedisStore struct {
	c      *goredis.Client
	maxAge time.Duration
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(c *goredis.Client, maxAge time.Duration) *RedisStore {
	return &RedisStore{c: c, maxAge: maxAge}
}

// OpenRedis connects using a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, rawURL string, maxAge time.Duration) (*RedisStore, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: parse url: %w", err)
	}
	c := goredis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("redis cache: ping: %w", err)
	}
	return NewRedisStore(c, maxAge), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.c.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache: get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Unreadable entry: treat as a miss so the next fetch overwrites it.
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.c.Set(ctx, redisKeyPrefix+key, data, s.maxAge).Err(); err != nil {
		return fmt.Errorf("redis cache: set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.c.Del(ctx, redisKeyPrefix+key).Err()
}

func (s *RedisStore) Close() error { return s.c.Close() }
