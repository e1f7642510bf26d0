// Package scorestore persists admission scoring output: the latest risk
// assessment per (community, member), and append-only suspected-alt-account
// signals.
//
// Assessments are overwritten on recompute; only the last calculated one is
// kept. History, where needed, comes from the audit stream instead. Alt
// signals are never mutated once written.
package scorestore

import (
	"context"
	"encoding/json"
	"time"
)

type AssessmentRecord struct {
	ID             uint   `gorm:"primarykey"`
	CommunityID    string `gorm:"uniqueIndex:idx_assessment_pair;not null"`
	MemberID       string `gorm:"uniqueIndex:idx_assessment_pair;not null"`
	Score          int
	Level          string `gorm:"index"`
	AccountAgeDays int
	HasAvatar      bool
	MutualCount    int
	JoinVelocity   int
	// Reasons is a JSON array of reason codes.
	Reasons   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *AssessmentRecord) EncodeReasons(reasons []string) {
	b, err := json.Marshal(reasons)
	if err != nil {
		r.Reasons = "[]"
		return
	}
	r.Reasons = string(b)
}

func (r *AssessmentRecord) DecodeReasons() []string {
	var out []string
	if err := json.Unmarshal([]byte(r.Reasons), &out); err != nil {
		return nil
	}
	return out
}

// AltSignal records one suspected-duplicate-account observation.
type AltSignal struct {
	ID          uint   `gorm:"primarykey"`
	CommunityID string `gorm:"index:idx_alt_pair"`
	MemberID    string `gorm:"index:idx_alt_pair"`
	Method      string
	Confidence  float64
	// Evidence is a JSON object of free-form supporting detail.
	Evidence  string
	CreatedAt time.Time
}

func (s *AltSignal) EncodeEvidence(evidence map[string]any) {
	b, err := json.Marshal(evidence)
	if err != nil {
		s.Evidence = "{}"
		return
	}
	s.Evidence = string(b)
}

func (s *AltSignal) DecodeEvidence() map[string]any {
	out := make(map[string]any)
	if err := json.Unmarshal([]byte(s.Evidence), &out); err != nil {
		return nil
	}
	return out
}

type ScoreStore interface {
	// UpsertAssessment writes the latest assessment for the pair,
	// overwriting any previous one. Idempotent.
	UpsertAssessment(ctx context.Context, rec *AssessmentRecord) error
	// GetAssessment returns (nil, nil) when the pair was never assessed.
	GetAssessment(ctx context.Context, communityID, memberID string) (*AssessmentRecord, error)
	// AppendAltSignal adds a signal; existing entries are never touched.
	AppendAltSignal(ctx context.Context, sig *AltSignal) error
	ListAltSignals(ctx context.Context, communityID, memberID string) ([]*AltSignal, error)
}
