package scorestore

import (
	"context"
	"sync"
	"time"
)

type MemScoreStore struct {
	lk          sync.Mutex
	nextID      uint
	assessments map[string]*AssessmentRecord
	altSignals  map[string][]*AltSignal
}

func NewMemScoreStore() *MemScoreStore {
	return &MemScoreStore{
		nextID:      1,
		assessments: make(map[string]*AssessmentRecord),
		altSignals:  make(map[string][]*AltSignal),
	}
}

func pairKey(communityID, memberID string) string {
	return communityID + "/" + memberID
}

func (s *MemScoreStore) UpsertAssessment(ctx context.Context, rec *AssessmentRecord) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	key := pairKey(rec.CommunityID, rec.MemberID)
	cp := *rec
	now := time.Now()
	if prev, ok := s.assessments[key]; ok {
		cp.ID = prev.ID
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.ID = s.nextID
		s.nextID++
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.assessments[key] = &cp
	return nil
}

func (s *MemScoreStore) GetAssessment(ctx context.Context, communityID, memberID string) (*AssessmentRecord, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	rec, ok := s.assessments[pairKey(communityID, memberID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *MemScoreStore) AppendAltSignal(ctx context.Context, sig *AltSignal) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *sig
	cp.ID = s.nextID
	s.nextID++
	cp.CreatedAt = time.Now()
	key := pairKey(sig.CommunityID, sig.MemberID)
	s.altSignals[key] = append(s.altSignals[key], &cp)
	return nil
}

func (s *MemScoreStore) ListAltSignals(ctx context.Context, communityID, memberID string) ([]*AltSignal, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	rows := s.altSignals[pairKey(communityID, memberID)]
	out := make([]*AltSignal, 0, len(rows))
	for _, sig := range rows {
		cp := *sig
		out = append(out, &cp)
	}
	return out, nil
}
