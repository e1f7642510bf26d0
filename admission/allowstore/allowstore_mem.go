package allowstore

import (
	"context"
	"sync"
	"time"
)

type MemAllowStore struct {
	lk      sync.Mutex
	entries map[string]*AllowEntry
}

func NewMemAllowStore() *MemAllowStore {
	return &MemAllowStore{
		entries: make(map[string]*AllowEntry),
	}
}

func subjectKey(communityID, subjectID string, kind SubjectKind) string {
	return communityID + "/" + string(kind) + "/" + subjectID
}

func (s *MemAllowStore) IsAllowed(ctx context.Context, communityID, memberID string, roleIDs []string, now time.Time) (bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if e, ok := s.entries[subjectKey(communityID, memberID, SubjectMember)]; ok && e.ActiveAt(now) {
		return true, nil
	}
	for _, roleID := range roleIDs {
		if e, ok := s.entries[subjectKey(communityID, roleID, SubjectRole)]; ok && e.ActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemAllowStore) Add(ctx context.Context, entry *AllowEntry) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *entry
	s.entries[subjectKey(entry.CommunityID, entry.SubjectID, entry.SubjectKind)] = &cp
	return nil
}

func (s *MemAllowStore) Remove(ctx context.Context, communityID, subjectID string, kind SubjectKind) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.entries, subjectKey(communityID, subjectID, kind))
	return nil
}
