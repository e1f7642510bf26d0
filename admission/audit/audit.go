// Package audit records admission lifecycle events for dashboards and staff
// review.
//
// Emission is fire-and-forget: sinks return errors so callers can log them,
// but no admission decision ever depends on an audit write landing.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types, one per lifecycle transition.
const (
	TypeAssessed        = "assessed"
	TypeAltFlagged      = "alt_flagged"
	TypeAgeFloorKick    = "age_floor_kick"
	TypeAllowBypass     = "allow_bypass"
	TypeAutoVerified    = "auto_verified"
	TypeChallengeIssued = "challenge_issued"
	TypeVerified        = "verified"
	TypeLockout         = "lockout"
	TypeExpired         = "expired"
	TypeDenied          = "denied"
	TypeEscalated       = "escalated"
	TypeMemberLeft      = "member_left"
)

type Event struct {
	ID          string
	CommunityID string
	MemberID    string
	Type        string
	Payload     map[string]any
	CreatedAt   time.Time
}

// New stamps an event with an ID and timestamp.
func New(communityID, memberID, eventType string, payload map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		MemberID:    memberID,
		Type:        eventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
}

type Sink interface {
	Emit(ctx context.Context, evt Event) error
}

// MultiSink fans out to several sinks, returning the first error after
// attempting all of them.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, evt Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.Emit(ctx, evt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
