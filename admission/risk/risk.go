// Package risk computes a heuristic admission risk score for members joining
// a community.
//
// The score is intentionally cheap: it reads only the attributes carried on
// the join event itself (account age, avatar presence, shared-community
// count) plus an in-process sliding window of recent joins per community.
// It is a triage signal, not a security boundary; trust history and threat
// intelligence are blended in downstream.
package risk

import (
	"time"
)

// MemberMeta is the observable snapshot of a joining member, supplied by the
// join event. Ephemeral; nothing here is fetched or persisted by the scorer.
type MemberMeta struct {
	CommunityID string
	MemberID    string
	DisplayName string
	// CreatedAt is the account creation time. Nil means the platform did not
	// supply one, and age-based signals are skipped.
	CreatedAt   *time.Time
	HasAvatar   bool
	MutualCount int
	RoleIDs     []string
}

// Assessment is the scorer's output for a single join. AccountAgeDays is -1
// when the creation time was missing or implausible.
type Assessment struct {
	Score          int
	Level          Level
	AccountAgeDays int
	HasAvatar      bool
	MutualCount    int
	JoinVelocity   int
	Reasons        []Reason
}

const (
	scoreBase            = 30
	scoreVeryNewAccount  = 30
	scoreNewAccount      = 15
	scoreNoAvatar        = 10
	scoreNoMutuals       = 5
	scoreHighVelocity    = 20
	scoreRaisedVelocity  = 10
	highVelocityFloor    = 5
	raisedVelocityFloor  = 3
	veryNewAccountWindow = 24 * time.Hour
	newAccountWindow     = 7 * 24 * time.Hour
)

// Scorer holds the per-community join window. Safe for concurrent use.
type Scorer struct {
	// Now is the clock; defaults to time.Now. Override in tests.
	Now func() time.Time

	windows *joinWindows
}

func NewScorer() *Scorer {
	return &Scorer{
		windows: newJoinWindows(DefaultVelocityWindow, maxTrackedCommunities),
	}
}

func (s *Scorer) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// plausibleCreation filters out missing and obviously bogus timestamps
// (clients can claim creation times in the future).
func plausibleCreation(createdAt *time.Time, now time.Time) bool {
	return createdAt != nil && !createdAt.After(now)
}

// Score records the join in the community's velocity window and returns the
// heuristic assessment. Penalties are independent and additive; the total is
// clamped to [0, 100].
func (s *Scorer) Score(meta MemberMeta) Assessment {
	now := s.clock()
	velocity := s.windows.observe(meta.CommunityID, now)

	score := scoreBase
	var reasons []Reason
	ageDays := -1

	if plausibleCreation(meta.CreatedAt, now) {
		age := now.Sub(*meta.CreatedAt)
		ageDays = int(age.Hours() / 24)
		if age < veryNewAccountWindow {
			score += scoreVeryNewAccount
			reasons = append(reasons, ReasonVeryNewAccount)
		} else if age < newAccountWindow {
			score += scoreNewAccount
			reasons = append(reasons, ReasonNewAccount)
		}
	}

	if !meta.HasAvatar {
		score += scoreNoAvatar
		reasons = append(reasons, ReasonNoAvatar)
	}
	if meta.MutualCount == 0 {
		score += scoreNoMutuals
		reasons = append(reasons, ReasonNoMutuals)
	}

	if velocity >= highVelocityFloor {
		score += scoreHighVelocity
		reasons = append(reasons, ReasonJoinVelocity)
	} else if velocity >= raisedVelocityFloor {
		score += scoreRaisedVelocity
		reasons = append(reasons, ReasonElevatedJoinVelocity)
	}

	score = ClampScore(score)

	return Assessment{
		Score:          score,
		Level:          LevelFromScore(score),
		AccountAgeDays: ageDays,
		HasAvatar:      meta.HasAvatar,
		MutualCount:    meta.MutualCount,
		JoinVelocity:   velocity,
		Reasons:        reasons,
	}
}

// Neutral is the assessment a join gets when heuristic scanning is disabled
// for the community: the base score alone, no signals inspected.
func Neutral() Assessment {
	return Assessment{
		Score:          scoreBase,
		Level:          LevelFromScore(scoreBase),
		AccountAgeDays: -1,
	}
}

// ClampScore bounds a score to the 0-100 scale.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
