package chalstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemChallengeStore keeps challenges in process memory. Used in tests and
// single-instance deployments that can tolerate losing in-flight challenges
// on restart (members just re-join).
type MemChallengeStore struct {
	lk     sync.Mutex
	nextID uint
	rows   map[string]*Challenge
}

func NewMemChallengeStore() *MemChallengeStore {
	return &MemChallengeStore{
		nextID: 1,
		rows:   make(map[string]*Challenge),
	}
}

func pairKey(communityID, memberID string) string {
	return communityID + "/" + memberID
}

func (s *MemChallengeStore) Replace(ctx context.Context, chal *Challenge) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *chal
	cp.ID = s.nextID
	s.nextID++
	s.rows[pairKey(chal.CommunityID, chal.MemberID)] = &cp
	chal.ID = cp.ID
	return nil
}

func (s *MemChallengeStore) GetPending(ctx context.Context, communityID, memberID string) (*Challenge, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	row, ok := s.rows[pairKey(communityID, memberID)]
	if !ok || row.Terminal() {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *MemChallengeStore) GetPendingByReviewToken(ctx context.Context, token string) (*Challenge, error) {
	if token == "" {
		return nil, nil
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, row := range s.rows {
		if row.ReviewToken == token && !row.Terminal() {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemChallengeStore) ListPendingForMember(ctx context.Context, memberID string) ([]*Challenge, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []*Challenge
	for _, row := range s.rows {
		if row.MemberID != memberID || row.Terminal() {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

func (s *MemChallengeStore) RecordAttempt(ctx context.Context, chalID uint) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, row := range s.rows {
		if row.ID == chalID {
			row.Attempts++
			return row.Attempts, nil
		}
	}
	return 0, nil
}

func (s *MemChallengeStore) MarkStatus(ctx context.Context, chalID uint, status Status) (bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, row := range s.rows {
		if row.ID == chalID {
			if row.Terminal() {
				return false, nil
			}
			row.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (s *MemChallengeStore) DeletePair(ctx context.Context, communityID, memberID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.rows, pairKey(communityID, memberID))
	return nil
}

func (s *MemChallengeStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Challenge, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []*Challenge
	for _, row := range s.rows {
		if row.Terminal() || !row.Expired(now) {
			continue
		}
		cp := *row
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
