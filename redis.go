package whoiscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "whoiscache:"

func connectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	password := os.Getenv("REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// RedisStore shares cached records between plugin instances through Redis.
// Keys carry the cache TTL, so Redis drops expired entries on its own.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, domain string) (CacheEntry, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+domain).Bytes()
	if errors.Is(err, redis.Nil) {
		return CacheEntry{}, ErrCacheMiss
	}
	if err != nil {
		return CacheEntry{}, err
	}

	var e CacheEntry
	if err := json.Unmarshal(val, &e); err != nil {
		return CacheEntry{}, fmt.Errorf("decode cached entry for %s: %w", domain, err)
	}
	return e, nil
}

func (s *RedisStore) Put(ctx context.Context, domain string, record LookupRecord, ttl time.Duration) error {
	b, err := json.Marshal(CacheEntry{Record: record, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+domain, b, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, domain string) error {
	return s.client.Del(ctx, redisKeyPrefix+domain).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
