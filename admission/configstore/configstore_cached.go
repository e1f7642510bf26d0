package configstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/darklock-net/gatehouse/admission/cachestore"
)

const cacheScope = "config"

// CachedConfigStore fronts another ConfigStore with a cachestore. Config is
// read once per join evaluation, so a short TTL keeps staff edits visible
// without hammering the database during a raid.
type CachedConfigStore struct {
	inner  ConfigStore
	cache  cachestore.CacheStore
	logger *slog.Logger
}

var _ ConfigStore = (*CachedConfigStore)(nil)

func NewCachedConfigStore(inner ConfigStore, cache cachestore.CacheStore, logger *slog.Logger) *CachedConfigStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedConfigStore{
		inner:  inner,
		cache:  cache,
		logger: logger.With("subsystem", "configstore"),
	}
}

func (s *CachedConfigStore) Get(ctx context.Context, communityID string) (*CommunityConfig, error) {
	existing, err := s.cache.Get(ctx, cacheScope, communityID)
	if err != nil {
		s.logger.Warn("config cache read failed", "err", err, "communityID", communityID)
	} else if existing != "" {
		var cfg CommunityConfig
		if err := json.Unmarshal([]byte(existing), &cfg); err == nil {
			return &cfg, nil
		}
		s.logger.Warn("invalid cached config, refetching", "communityID", communityID)
	}

	cfg, err := s.inner.Get(ctx, communityID)
	if err != nil {
		return cfg, err
	}

	if b, err := json.Marshal(cfg); err == nil {
		if err := s.cache.Set(ctx, cacheScope, communityID, string(b)); err != nil {
			s.logger.Warn("config cache write failed", "err", err, "communityID", communityID)
		}
	}
	return cfg, nil
}

func (s *CachedConfigStore) Put(ctx context.Context, cfg *CommunityConfig) error {
	if err := s.inner.Put(ctx, cfg); err != nil {
		return err
	}
	if err := s.cache.Purge(ctx, cacheScope, cfg.CommunityID); err != nil {
		s.logger.Warn("config cache purge failed", "err", err, "communityID", cfg.CommunityID)
	}
	return nil
}
