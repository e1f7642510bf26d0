package intelstore

import (
	"context"
	"sync"
	"time"
)

// MemIntelStore is the in-memory implementation, for tests and deployments
// without external trust tooling (every member then reads as unknown).
type MemIntelStore struct {
	lk      sync.Mutex
	trust   map[string]TrustRecord
	threats map[string][]ThreatRecord
}

func NewMemIntelStore() *MemIntelStore {
	return &MemIntelStore{
		trust:   make(map[string]TrustRecord),
		threats: make(map[string][]ThreatRecord),
	}
}

func trustKey(communityID, memberID string) string {
	return communityID + "/" + memberID
}

// SetTrust seeds a trust record. Not part of the IntelStore interface;
// mutation belongs to external moderation tooling.
func (s *MemIntelStore) SetTrust(communityID, memberID string, rec TrustRecord) {
	s.lk.Lock()
	defer s.lk.Unlock()
	rec.CommunityID = communityID
	rec.MemberID = memberID
	s.trust[trustKey(communityID, memberID)] = rec
}

// AddThreat seeds a threat record.
func (s *MemIntelStore) AddThreat(memberID string, rec ThreatRecord) {
	s.lk.Lock()
	defer s.lk.Unlock()
	rec.MemberID = memberID
	s.threats[memberID] = append(s.threats[memberID], rec)
}

func (s *MemIntelStore) GetTrust(ctx context.Context, communityID, memberID string) (TrustRecord, bool) {
	s.lk.Lock()
	defer s.lk.Unlock()
	rec, ok := s.trust[trustKey(communityID, memberID)]
	return rec, ok
}

func (s *MemIntelStore) ActiveThreats(ctx context.Context, memberID string) ([]ThreatRecord, bool) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []ThreatRecord
	for _, rec := range s.threats[memberID] {
		if rec.Active {
			out = append(out, rec)
		}
	}
	return out, true
}

func (s *MemIntelStore) TouchVerified(ctx context.Context, communityID, memberID string, when time.Time) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	key := trustKey(communityID, memberID)
	rec, ok := s.trust[key]
	if !ok {
		rec = TrustRecord{
			CommunityID: communityID,
			MemberID:    memberID,
			TrustScore:  DefaultTrustScore,
		}
	}
	rec.LastVerifiedAt = &when
	s.trust[key] = rec
	return nil
}
