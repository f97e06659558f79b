package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "rvk"

// RedisBackend is a Redis-backed [Backend] shared across service instances.
// Redis PX expiry handles retention natively, so Sweep is a no-op.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a [RedisBackend] on the given client. prefix sets
// the key namespace; empty means "rvk".
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{redis: client, prefix: prefix}
}

func (b *RedisBackend) key(fingerprint string) string {
	return b.prefix + ":" + fingerprint
}

// Put records the key with a PX expiry matching the token's remaining life.
//
//	Performance: 1 Redis SET.
func (b *RedisBackend) Put(ctx context.Context, key string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.redis.Set(ctx, b.key(key), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Has reports whether the key is present. Redis expiry has already removed
// entries past retention.
//
//	Performance: 1 Redis EXISTS.
func (b *RedisBackend) Has(ctx context.Context, key string) (bool, error) {
	n, err := b.redis.Exists(ctx, b.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n == 1, nil
}

// Sweep is a no-op: Redis reclaims expired entries itself.
func (b *RedisBackend) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
