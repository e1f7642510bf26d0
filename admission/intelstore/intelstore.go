// Package intelstore reads the trust history and threat intelligence that
// score fusion blends with the join heuristic.
//
// Both record types are maintained by external moderation tooling; admission
// only reads them, except for stamping a verification timestamp on success.
// Reads follow an explicit fail-open contract: the boolean result is false
// when the record is absent or the store is unreachable, and callers
// substitute neutral defaults. A scoring-store outage must never block a
// join.
package intelstore

import (
	"context"
	"time"
)

// DefaultTrustScore is assumed for members with no trust history. Unknown
// members are treated as mildly trusted rather than suspicious, to avoid
// false positives on legitimate new accounts.
const DefaultTrustScore = 80

// TrustRecord is the long-lived reputation value per (community, member).
// ManualOverride marks a score set by hand by community staff.
type TrustRecord struct {
	ID             uint   `gorm:"primarykey"`
	CommunityID    string `gorm:"uniqueIndex:idx_trust_pair;not null"`
	MemberID       string `gorm:"uniqueIndex:idx_trust_pair;not null"`
	TrustScore     int
	ManualOverride bool
	LastVerifiedAt *time.Time
}

// ThreatSeverity tiers, worst first: critical, high, medium, low.
type ThreatSeverity string

const (
	SeverityCritical ThreatSeverity = "critical"
	SeverityHigh     ThreatSeverity = "high"
	SeverityMedium   ThreatSeverity = "medium"
	SeverityLow      ThreatSeverity = "low"
)

// Value maps a severity tier to its fusion penalty weight. Unknown tiers
// weigh zero.
func (s ThreatSeverity) Value() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 8
	case SeverityMedium:
		return 5
	case SeverityLow:
		return 2
	default:
		return 0
	}
}

// ThreatRecord is an externally sourced indicator of a known-bad identity.
// Keyed by member alone: threat intel is platform-global, not per community.
type ThreatRecord struct {
	ID       uint           `gorm:"primarykey"`
	MemberID string         `gorm:"index;not null"`
	Severity ThreatSeverity `gorm:"not null"`
	Type     string
	Active   bool `gorm:"index"`
}

type IntelStore interface {
	// GetTrust returns the pair's trust record. False when absent or the
	// store errored; callers default to DefaultTrustScore.
	GetTrust(ctx context.Context, communityID, memberID string) (TrustRecord, bool)
	// ActiveThreats returns the member's active threat records. False when
	// the store errored; callers treat it as no known threats.
	ActiveThreats(ctx context.Context, memberID string) ([]ThreatRecord, bool)
	// TouchVerified stamps a successful verification on the pair's trust
	// record, creating one with the default score if none exists. The trust
	// score itself is never modified here.
	TouchVerified(ctx context.Context, communityID, memberID string, when time.Time) error
}

// MaxSeverityValue is the fusion input: the worst active severity weight, or
// zero with no records.
func MaxSeverityValue(records []ThreatRecord) int {
	max := 0
	for _, r := range records {
		if v := r.Severity.Value(); v > max {
			max = v
		}
	}
	return max
}
