package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mazrik/modcat/pkg/observability"
)

// RedisStore implements Store on top of a single Redis database.
// Each partition maps to its own DB number, mirroring the historical
// layout of the catalog (modules and vendors in separate DBs).
type RedisStore struct {
	name   string
	client *redis.Client
}

// NewRedisStore connects to Redis and binds the partition to the given
// DB number. The connection is verified with a ping before returning.
func NewRedisStore(ctx context.Context, name, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable(err, "ping", name, "")
	}
	return &RedisStore{name: name, client: client}, nil
}

// Name returns the partition name.
func (s *RedisStore) Name() string { return s.name }

// Get retrieves the raw value stored under key.
// Absent keys yield EmptyObject.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.Store().OnGet(ctx, s.name, key, true)
		return EmptyObject, nil
	}
	if err != nil {
		observability.Store().OnError(ctx, s.name, "get", err)
		return nil, unavailable(err, "get", s.name, key)
	}
	observability.Store().OnGet(ctx, s.name, key, false)
	return data, nil
}

// Set stores value under key with no expiration.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		observability.Store().OnError(ctx, s.name, "set", err)
		return unavailable(err, "set", s.name, key)
	}
	observability.Store().OnSet(ctx, s.name, key, len(value))
	return nil
}

// Delete removes the given keys and returns how many existed.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		observability.Store().OnError(ctx, s.name, "delete", err)
		return 0, unavailable(err, "delete", s.name, "")
	}
	observability.Store().OnDelete(ctx, s.name, len(keys), int(removed))
	return int(removed), nil
}

// ScanKeys iterates the whole partition with SCAN and returns every key.
func (s *RedisStore) ScanKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	var keys []string
	iter := s.client.Scan(ctx, 0, "", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		observability.Store().OnError(ctx, s.name, "scan", err)
		return nil, unavailable(err, "scan", s.name, "")
	}
	observability.Store().OnScan(ctx, s.name, len(keys), time.Since(start))
	return keys, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
