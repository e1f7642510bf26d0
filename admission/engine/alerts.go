package engine

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/risk"
)

// DefaultAlertCooldown is how long repeated escalations for the same pair
// stay suppressed, unless the risk level got strictly worse.
const DefaultAlertCooldown = 15 * time.Minute

// trustOverrideFloor: pairs a staff member manually marked trusted at or
// above this score never escalate, whatever the heuristics say.
const trustOverrideFloor = 70

const alertCacheSize = 1024

type alertEntry struct {
	sentAt time.Time
	level  risk.Level
}

// AlertThrottler deduplicates staff escalations per (community, member).
// State is process-local and size-bounded; worst case a restart repeats an
// alert, which staff can live with.
type AlertThrottler struct {
	cooldown time.Duration
	entries  *expirable.LRU[string, alertEntry]
}

func NewAlertThrottler(cooldown time.Duration) *AlertThrottler {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &AlertThrottler{
		cooldown: cooldown,
		entries:  expirable.NewLRU[string, alertEntry](alertCacheSize, nil, cooldown),
	}
}

// ShouldAlert reports whether an escalation at this level may go out now.
// Inside the cooldown window only a strictly worse level passes.
func (t *AlertThrottler) ShouldAlert(communityID, memberID string, level risk.Level, now time.Time) bool {
	prev, ok := t.entries.Get(alertKey(communityID, memberID))
	if !ok {
		return true
	}
	// the LRU's TTL usually evicts first; the explicit check covers tests
	// running on an injected clock
	if now.Sub(prev.sentAt) >= t.cooldown {
		return true
	}
	return level > prev.level
}

// Record notes a sent escalation, restarting the pair's cooldown.
func (t *AlertThrottler) Record(communityID, memberID string, level risk.Level, now time.Time) {
	t.entries.Add(alertKey(communityID, memberID), alertEntry{sentAt: now, level: level})
}

func alertKey(communityID, memberID string) string {
	return communityID + "/" + memberID
}

// maybeEscalate pushes a staff notice for risky joins, unless escalation is
// off for the community, the member is manually trusted, or the throttler
// says staff already heard about this pair.
func (eng *Engine) maybeEscalate(c *JoinContext) {
	if !c.Config.EnableStaffEscalation || eng.Notifier == nil {
		return
	}
	if c.Final.Level < risk.LevelMedium {
		return
	}
	if c.Final.TrustOverridden && c.Final.TrustScore >= trustOverrideFloor {
		c.Logger.Debug("escalation suppressed by manual trust override", "trust", c.Final.TrustScore)
		escalationSuppressedCount.WithLabelValues("trust_override").Inc()
		return
	}
	now := eng.clock()
	if eng.Alerts != nil && !eng.Alerts.ShouldAlert(c.Member.CommunityID, c.Member.MemberID, c.Final.Level, now) {
		escalationSuppressedCount.WithLabelValues("cooldown").Inc()
		return
	}

	esc := &Escalation{
		CommunityID:    c.Member.CommunityID,
		MemberID:       c.Member.MemberID,
		DisplayName:    c.Member.DisplayName,
		Score:          c.Final.Score,
		Level:          c.Final.Level,
		Base:           c.Final.Base,
		TrustScore:     c.Final.TrustScore,
		TrustAdj:       c.Final.TrustAdj,
		ThreatBoost:    c.Final.ThreatBoost,
		Reasons:        c.Final.Reasons,
		AccountAgeDays: c.Base.AccountAgeDays,
		JoinVelocity:   c.Base.JoinVelocity,
	}
	if err := eng.Notifier.Notify(c.Ctx, c.Config.StaffWebhookURL, escalationBody(esc)); err != nil {
		// leave the throttler unrecorded so the next join retries the notice
		c.Logger.Warn("staff escalation failed", "err", err)
		return
	}
	if eng.Alerts != nil {
		eng.Alerts.Record(c.Member.CommunityID, c.Member.MemberID, c.Final.Level, now)
	}
	escalationSentCount.Inc()
	eng.emitAudit(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, audit.TypeEscalated, map[string]any{
		"score": c.Final.Score,
		"level": c.Final.Level.String(),
	})
	c.Logger.Info("escalated to staff", "score", c.Final.Score, "level", c.Final.Level)
}
