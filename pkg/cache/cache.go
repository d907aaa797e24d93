// Package cache is a thin JSON cache over Redis. Every call is a no-op
// miss while Redis is unavailable, so callers never branch on it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/metrics"
)

var RDB *redis.Client

// Connect initialises the Redis client and verifies the connection with a ping.
// On failure RDB stays nil and the cache degrades to always-miss.
func Connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       config.RedisDB(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		RDB = nil
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = client
	return nil
}

// Use installs an existing client, or nil to disable caching.
func Use(client *redis.Client) { RDB = client }

// Available reports whether a Redis client is connected.
func Available() bool { return RDB != nil }

// Close releases the client.
func Close() error {
	if RDB == nil {
		return nil
	}
	err := RDB.Close()
	RDB = nil
	return err
}

// Get retrieves a cached value by key and unmarshals into dest.
// Returns true on a cache hit, false on miss or error.
func Get(ctx context.Context, key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}

	val, err := RDB.Get(ctx, key).Bytes()
	if err != nil {
		metrics.CacheMisses.WithLabelValues(bucket(key)).Inc()
		return false
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false
	}

	metrics.CacheHits.WithLabelValues(bucket(key)).Inc()
	return true
}

// Set stores value in Redis under key for the given TTL.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return RDB.Set(ctx, key, data, ttl).Err()
}

// Remember returns the cached value for key, or runs fn and caches its result.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var out T
	if Get(ctx, key, &out) {
		return out, nil
	}
	out, err := fn()
	if err != nil {
		return out, err
	}
	_ = Set(ctx, key, out, ttl)
	return out, nil
}

// Has reports whether key exists.
func Has(ctx context.Context, key string) (bool, error) {
	if RDB == nil {
		return false, nil
	}
	n, err := RDB.Exists(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}

// Del removes one or more keys from Redis.
func Del(ctx context.Context, keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}
	return RDB.Del(ctx, keys...).Err()
}

// ForgetPrefix deletes every key starting with prefix.
func ForgetPrefix(ctx context.Context, prefix string) error {
	if RDB == nil {
		return nil
	}
	iter := RDB.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := RDB.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return Del(ctx, batch...)
}

// bucket is the key's first segment ("products:all" -> "products").
func bucket(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
