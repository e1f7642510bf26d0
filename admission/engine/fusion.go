package engine

import (
	"math"

	"github.com/darklock-net/gatehouse/admission/intelstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

// Trust scores at or below neutral push the final score up; scores above
// neutral pull it down.
const trustNeutral = 50

// trustDampening converts trust-point distance from neutral into score
// points.
const trustDampening = 0.4

// severityBoost converts the worst active threat severity into score points.
const severityBoost = 10

// lowTrustFloor is where a stored trust score becomes a reason code of its
// own.
const lowTrustFloor = 30

// Fusion is the blended admission score: the heuristic base adjusted by
// trust history and active threat intel. The component terms are kept so
// escalation notices and the review surface can show staff exactly how the
// number came about.
type Fusion struct {
	Score int
	Level risk.Level

	Base        int
	TrustScore  int
	TrustAdj    float64
	ThreatBoost float64
	Reasons     []risk.Reason

	// TrustKnown is false when the pair has no stored trust record (or the
	// store was unreachable) and TrustScore is the fail-open default.
	TrustKnown bool
	// TrustOverridden marks a trust score pinned by staff, which wins over
	// anything the heuristics conclude.
	TrustOverridden bool
}

// fuseScore blends a base assessment with the member's trust history and
// threat records. Intel reads fail open: an unreachable store behaves like a
// member with no history.
func (eng *Engine) fuseScore(c *JoinContext) Fusion {
	base := c.Base

	trust := intelstore.DefaultTrustScore
	trustKnown := false
	overridden := false
	if rec, ok := eng.Intel.GetTrust(c.Ctx, c.Member.CommunityID, c.Member.MemberID); ok {
		trust = rec.TrustScore
		trustKnown = true
		overridden = rec.ManualOverride
	}

	severity := 0
	if threats, ok := eng.Intel.ActiveThreats(c.Ctx, c.Member.MemberID); ok {
		severity = intelstore.MaxSeverityValue(threats)
	}

	trustAdj := float64(trust-trustNeutral) * trustDampening
	threatAdj := float64(severity) * severityBoost
	score := risk.ClampScore(int(math.Round(float64(base.Score) - trustAdj + threatAdj)))

	reasons := make([]risk.Reason, len(base.Reasons), len(base.Reasons)+2)
	copy(reasons, base.Reasons)
	if trustKnown && trust < lowTrustFloor {
		reasons = append(reasons, risk.ReasonLowTrust)
	}
	if severity > 0 {
		reasons = append(reasons, risk.ReasonThreatSeverity(severity))
	}

	return Fusion{
		Score:           score,
		Level:           risk.LevelFromScore(score),
		Base:            base.Score,
		TrustScore:      trust,
		TrustAdj:        trustAdj,
		ThreatBoost:     threatAdj,
		Reasons:         reasons,
		TrustKnown:      trustKnown,
		TrustOverridden: overridden,
	}
}
