// Package chalstore persists in-flight verification challenges.
//
// A challenge is the time-boxed proof-of-response artifact gating role
// elevation after a risky join. At most one non-terminal challenge exists per
// (community, member) pair; issuing a new one replaces whatever was there.
// Rows are mutated on each response attempt and terminalized exactly once on
// success, lockout, or expiry.
package chalstore

import (
	"context"
	"time"
)

// Mode is how the member proves the challenge.
type Mode string

const (
	// ModeButton: clicking the interactive affordance is the proof.
	ModeButton Mode = "button"
	// ModeCode: the member echoes back a numeric code.
	ModeCode Mode = "code"
	// ModeWeb: staff approve or deny through an external review surface.
	ModeWeb Mode = "web"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

type Challenge struct {
	ID          uint   `gorm:"primarykey"`
	CommunityID string `gorm:"uniqueIndex:idx_challenge_pair;not null"`
	MemberID    string `gorm:"uniqueIndex:idx_challenge_pair;not null"`
	Mode        Mode   `gorm:"not null"`
	Status      Status `gorm:"index;not null"`
	// SecretHash is the lowercase hex SHA-256 of the expected response.
	SecretHash string
	// DisplayCode is the plaintext code for code-mode challenges, kept for
	// surfaces that can't prehash their input.
	DisplayCode string
	// ReviewToken is the single-use opaque token for web-mode review lookup.
	ReviewToken string `gorm:"index"`
	IssuedAt    time.Time
	ExpiresAt   time.Time `gorm:"index"`
	Attempts    int
	MaxAttempts int
}

func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *Challenge) Terminal() bool {
	return c.Status != StatusPending
}

// ChallengeStore is the persistence interface for challenges. Get methods
// return (nil, nil) when no matching pending challenge exists; absence is an
// expected state, not an error.
type ChallengeStore interface {
	// Replace deletes any existing challenge for the pair and inserts this
	// one, as a single atomic step.
	Replace(ctx context.Context, chal *Challenge) error
	GetPending(ctx context.Context, communityID, memberID string) (*Challenge, error)
	GetPendingByReviewToken(ctx context.Context, token string) (*Challenge, error)
	// ListPendingForMember returns the member's pending challenges across all
	// communities, newest first. Used to route direct messages, which carry no
	// community scope.
	ListPendingForMember(ctx context.Context, memberID string) ([]*Challenge, error)
	// RecordAttempt atomically increments the attempt counter and returns the
	// new value.
	RecordAttempt(ctx context.Context, chalID uint) (int, error)
	// MarkStatus transitions a pending challenge to a terminal status.
	// Returns false if the challenge was already terminal (or gone), so
	// concurrent responders settle on a single transition.
	MarkStatus(ctx context.Context, chalID uint, status Status) (bool, error)
	// DeletePair removes any challenge for the pair, terminal or not.
	DeletePair(ctx context.Context, communityID, memberID string) error
	// ListExpiredPending returns pending challenges whose expiry has passed.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Challenge, error)
}
