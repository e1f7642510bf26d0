package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemCacheStore struct {
	data *expirable.LRU[string, string]
}

func NewMemCacheStore(capacity int, ttl time.Duration) *MemCacheStore {
	return &MemCacheStore{
		data: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func memCacheKey(scope, key string) string {
	return scope + "/" + key
}

func (s *MemCacheStore) Get(ctx context.Context, scope, key string) (string, error) {
	v, ok := s.data.Get(memCacheKey(scope, key))
	if !ok {
		return "", nil
	}
	return v, nil
}

func (s *MemCacheStore) Set(ctx context.Context, scope, key string, val string) error {
	s.data.Add(memCacheKey(scope, key), val)
	return nil
}

func (s *MemCacheStore) Purge(ctx context.Context, scope, key string) error {
	s.data.Remove(memCacheKey(scope, key))
	return nil
}
