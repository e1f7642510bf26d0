package cachestore

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// RedisCacheStore layers a local TinyLFU tier over a shared redis cache. The
// daemon passes in its existing redis client rather than dialing a second
// connection.
type RedisCacheStore struct {
	data *cache.Cache
	ttl  time.Duration
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(rdb *redis.Client, ttl time.Duration) *RedisCacheStore {
	return &RedisCacheStore{
		data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(10_000, ttl),
		}),
		ttl: ttl,
	}
}

func redisCacheKey(scope, key string) string {
	return "admission/" + scope + "/" + key
}

func (s *RedisCacheStore) Get(ctx context.Context, scope, key string) (string, error) {
	var val string
	err := s.data.Get(ctx, redisCacheKey(scope, key), &val)
	if err == cache.ErrCacheMiss {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, scope, key string, val string) error {
	return s.data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCacheKey(scope, key),
		Value: val,
		TTL:   s.ttl,
	})
}

func (s *RedisCacheStore) Purge(ctx context.Context, scope, key string) error {
	err := s.data.Delete(ctx, redisCacheKey(scope, key))
	if err == cache.ErrCacheMiss {
		return nil
	}
	return err
}
