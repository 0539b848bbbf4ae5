package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend persists session keys in Redis. Batches are applied in a
// MULTI/EXEC transaction so readers never observe a partial write.
//
//	Performance: Read is one MGET; Apply is one transaction.
type RedisBackend struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisBackend creates a [RedisBackend]. A positive ttl is applied to every
// written key; zero keeps keys until the next logout.
func NewRedisBackend(client redis.UniversalClient, ttl time.Duration) *RedisBackend {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBackend{redis: client, ttl: ttl}
}

// Read fetches keys with a single MGET. Missing keys are omitted.
func (b *RedisBackend) Read(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := b.redis.MGet(ctx, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = s
	}
	return out, nil
}

// Apply writes batch in one transaction.
func (b *RedisBackend) Apply(ctx context.Context, batch Batch) error {
	if len(batch.Set) == 0 && len(batch.Delete) == 0 {
		return nil
	}

	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(batch.Delete) > 0 {
			pipe.Del(ctx, batch.Delete...)
		}
		for key, v := range batch.Set {
			pipe.Set(ctx, key, v, b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
