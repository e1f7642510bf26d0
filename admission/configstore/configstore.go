// Package configstore loads per-community admission policy.
//
// Every tunable the orchestrator consults lives here as a named, typed field
// with a documented default. Unknown communities get the defaults; so do
// reads that fail, because admission must keep working through a config
// store outage (members just get standard-profile treatment).
package configstore

import (
	"context"
	"time"
)

// Profile is the community's strictness tier.
type Profile string

const (
	// ProfileStandard derives the challenge mode from the risk level.
	ProfileStandard Profile = "standard"
	// ProfileHigh challenges everyone; high-risk joins need staff review.
	ProfileHigh Profile = "high"
	// ProfileUltra sends every join to staff review.
	ProfileUltra Profile = "ultra"
)

// VerificationMethod is the per-community override for how members verify.
type VerificationMethod string

const (
	// MethodAuto lets the risk level pick.
	MethodAuto   VerificationMethod = "auto"
	MethodButton VerificationMethod = "button"
	MethodCode   VerificationMethod = "code"
	MethodWeb    VerificationMethod = "web"
)

const (
	DefaultChallengeTimeoutMinutes = 10
	DefaultMaxAttempts             = 5
)

type CommunityConfig struct {
	ID          uint   `gorm:"primarykey"`
	CommunityID string `gorm:"uniqueIndex;not null"`

	Profile Profile
	// MinAccountAgeDays below which a joining account trips the age floor.
	// Zero disables the floor.
	MinAccountAgeDays int
	// AutoKickOnAgeFail removes members below the age floor outright,
	// before any scoring.
	AutoKickOnAgeFail  bool
	VerificationMethod VerificationMethod
	// EnableAdvancedScan opts standard-profile communities into heuristic
	// scoring; high and ultra imply it.
	EnableAdvancedScan      bool
	ChallengeTimeoutMinutes int
	MaxAttempts             int
	RestrictedRoleID        string
	VerifiedRoleID          string
	EnableStaffEscalation   bool
	StaffWebhookURL         string
	// FallbackChannelID receives challenge messages when direct delivery
	// fails.
	FallbackChannelID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultConfig is what an unconfigured community runs with.
func DefaultConfig(communityID string) *CommunityConfig {
	return &CommunityConfig{
		CommunityID:             communityID,
		Profile:                 ProfileStandard,
		VerificationMethod:      MethodAuto,
		ChallengeTimeoutMinutes: DefaultChallengeTimeoutMinutes,
		MaxAttempts:             DefaultMaxAttempts,
	}
}

func (c *CommunityConfig) AdvancedScanEnabled() bool {
	return c.EnableAdvancedScan || c.Profile == ProfileHigh || c.Profile == ProfileUltra
}

func (c *CommunityConfig) ChallengeTTL() time.Duration {
	m := c.ChallengeTimeoutMinutes
	if m <= 0 {
		m = DefaultChallengeTimeoutMinutes
	}
	return time.Duration(m) * time.Minute
}

func (c *CommunityConfig) AttemptLimit() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

type ConfigStore interface {
	// Get always returns a usable config: stored values when present,
	// DefaultConfig otherwise. A non-nil error reports a storage problem the
	// caller may want to log; the returned config is still valid.
	Get(ctx context.Context, communityID string) (*CommunityConfig, error)
	Put(ctx context.Context, cfg *CommunityConfig) error
}
