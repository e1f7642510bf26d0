package configstore

import (
	"context"
	"sync"
)

type MemConfigStore struct {
	lk   sync.Mutex
	rows map[string]*CommunityConfig
}

func NewMemConfigStore() *MemConfigStore {
	return &MemConfigStore{
		rows: make(map[string]*CommunityConfig),
	}
}

func (s *MemConfigStore) Get(ctx context.Context, communityID string) (*CommunityConfig, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	cfg, ok := s.rows[communityID]
	if !ok {
		return DefaultConfig(communityID), nil
	}
	cp := *cfg
	return &cp, nil
}

func (s *MemConfigStore) Put(ctx context.Context, cfg *CommunityConfig) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *cfg
	s.rows[cfg.CommunityID] = &cp
	return nil
}
