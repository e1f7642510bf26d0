package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/darklock-net/gatehouse/admission/allowstore"
	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/intelstore"
	"github.com/darklock-net/gatehouse/admission/risk"
	"github.com/darklock-net/gatehouse/admission/scorestore"
	"github.com/darklock-net/gatehouse/platform"
)

// runtime for admitting members: scoring joins, issuing and verifying
// challenges, and recording the outcomes.
//
// TODO: careful when initializing: several fields should not be null or zero, even though they are pointer type.
type Engine struct {
	Logger     *slog.Logger
	Scorer     *risk.Scorer
	Configs    configstore.ConfigStore
	Challenges chalstore.ChallengeStore
	Intel      intelstore.IntelStore
	Scores     scorestore.ScoreStore
	AllowList  allowstore.AllowStore
	Audit      audit.Sink
	Roles      RoleClient
	Messenger  Messenger
	// used to push escalation notices to a staff channel (optional)
	Notifier StaffNotifier
	Alerts   *AlertThrottler
	Cooldown *ActionCooldown
	// ReviewURLBase turns review tokens into clickable staff links (optional)
	ReviewURLBase string
	// Now is the clock; defaults to time.Now. Override in tests.
	Now func() time.Time
}

// RoleClient is the slice of the platform API the engine uses to change
// membership state. Implemented by platform.Client.
type RoleClient interface {
	AssignRole(ctx context.Context, communityID, memberID, roleID string) error
	RemoveRole(ctx context.Context, communityID, memberID, roleID string) error
	Kick(ctx context.Context, communityID, memberID, reason string) error
}

// Messenger delivers challenge and status notices to members. Implemented by
// platform.Client.
type Messenger interface {
	SendDirect(ctx context.Context, memberID string, msg *platform.Message) error
	SendChannel(ctx context.Context, communityID, channelID string, msg *platform.Message) error
}

func (eng *Engine) clock() time.Time {
	if eng.Now != nil {
		return eng.Now()
	}
	return time.Now()
}

// ProcessJoinEvent runs the full admission pipeline for one member join:
// config load, age floor, allow-list bypass, scoring and fusion, staff
// escalation, then challenge selection and issuance.
//
// Storage and platform hiccups degrade the decision rather than blocking the
// member; only a failure to persist an issued challenge surfaces as an error.
func (eng *Engine) ProcessJoinEvent(ctx context.Context, member risk.MemberMeta) error {
	// similar to an HTTP server, we want to recover any panics from pipeline execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("admission event execution exception", "err", r, "community", member.CommunityID, "member", member.MemberID)
			joinEventCount.WithLabelValues("panic").Inc()
		}
	}()
	start := time.Now()
	defer func() {
		joinEventDuration.Observe(time.Since(start).Seconds())
	}()

	cfg, err := eng.Configs.Get(ctx, member.CommunityID)
	if err != nil {
		eng.Logger.Warn("community config read failed, running with defaults", "err", err, "community", member.CommunityID)
	}
	c := NewJoinContext(ctx, eng, member, cfg)

	if eng.applyAgeFloor(&c) {
		joinEventCount.WithLabelValues("age_floor_kick").Inc()
		return nil
	}

	allowed, err := eng.AllowList.IsAllowed(ctx, member.CommunityID, member.MemberID, member.RoleIDs, eng.clock())
	if err != nil {
		// treat an unreachable allow-list as no entry; admission proceeds
		c.Logger.Warn("allow-list lookup failed", "err", err)
	}
	if allowed {
		c.Logger.Info("member on allow-list, bypassing checks")
		eng.autoVerify(&c, audit.TypeAllowBypass, nil)
		joinEventCount.WithLabelValues("allow_bypass").Inc()
		return nil
	}

	if cfg.AdvancedScanEnabled() {
		c.Base = eng.Scorer.Score(member)
	} else {
		c.Base = risk.Neutral()
	}
	c.Final = eng.fuseScore(&c)
	c.Logger.Info("join assessed", "score", c.Final.Score, "level", c.Final.Level, "base", c.Final.Base, "reasons", risk.ReasonStrings(c.Final.Reasons))

	eng.persistAssessment(&c)
	eng.maybeEscalate(&c)

	mode, ok := selectMode(cfg, c.Final.Level)
	if !ok {
		eng.autoVerify(&c, audit.TypeAutoVerified, map[string]any{
			"score": c.Final.Score,
			"level": c.Final.Level.String(),
		})
		joinEventCount.WithLabelValues("auto_verified").Inc()
		return nil
	}

	if err := eng.issueChallenge(&c, mode); err != nil {
		joinEventCount.WithLabelValues("error").Inc()
		return err
	}
	joinEventCount.WithLabelValues("challenged").Inc()
	return nil
}

// applyAgeFloor enforces the community's minimum account age. Returns true
// when the join was terminated by a kick. Unknown account ages never trip
// the floor.
func (eng *Engine) applyAgeFloor(c *JoinContext) bool {
	floor := c.Config.MinAccountAgeDays
	if floor <= 0 || c.Member.CreatedAt == nil {
		return false
	}
	now := eng.clock()
	if c.Member.CreatedAt.After(now) {
		return false
	}
	ageDays := int(now.Sub(*c.Member.CreatedAt).Hours() / 24)
	if ageDays >= floor {
		return false
	}
	if !c.Config.AutoKickOnAgeFail {
		// floor observed but kick disabled; the age signals in scoring carry it
		c.Logger.Info("account below age floor, continuing without kick", "ageDays", ageDays, "floor", floor)
		return false
	}
	if err := eng.Roles.Kick(c.Ctx, c.Member.CommunityID, c.Member.MemberID, "account newer than community minimum age"); err != nil {
		if isMissingMember(err) {
			c.Logger.Info("member already gone before age-floor kick")
		} else {
			c.Logger.Warn("age-floor kick failed", "err", err)
		}
	}
	eng.emitAudit(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, audit.TypeAgeFloorKick, map[string]any{
		"ageDays": ageDays,
		"floor":   floor,
	})
	return true
}

// autoVerify admits a member without a challenge, granting the verified role
// when one is configured.
func (eng *Engine) autoVerify(c *JoinContext, auditType string, payload map[string]any) {
	eng.adjustRole(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, c.Config.VerifiedRoleID, true)
	eng.emitAudit(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, auditType, payload)
}

// persistAssessment records the fused assessment for the review surface and
// later joins. Failures are logged and dropped; scoring output is advisory
// and the pipeline keeps moving.
func (eng *Engine) persistAssessment(c *JoinContext) {
	rec := &scorestore.AssessmentRecord{
		CommunityID:    c.Member.CommunityID,
		MemberID:       c.Member.MemberID,
		Score:          c.Final.Score,
		Level:          c.Final.Level.String(),
		AccountAgeDays: c.Base.AccountAgeDays,
		HasAvatar:      c.Base.HasAvatar,
		MutualCount:    c.Base.MutualCount,
		JoinVelocity:   c.Base.JoinVelocity,
	}
	rec.EncodeReasons(risk.ReasonStrings(c.Final.Reasons))
	if err := eng.Scores.UpsertAssessment(c.Ctx, rec); err != nil {
		c.Logger.Warn("failed to persist assessment", "err", err)
	}
	eng.emitAudit(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, audit.TypeAssessed, map[string]any{
		"score":       c.Final.Score,
		"level":       c.Final.Level.String(),
		"base":        c.Final.Base,
		"trustAdj":    c.Final.TrustAdj,
		"threatBoost": c.Final.ThreatBoost,
		"reasons":     risk.ReasonStrings(c.Final.Reasons),
	})
	eng.flagSuspectedAlt(c)
}

// flagSuspectedAlt records an append-only duplicate-account signal when a
// very new account still lands at high risk. The signal feeds the staff
// review surface; it never alters the admission decision itself.
func (eng *Engine) flagSuspectedAlt(c *JoinContext) {
	if c.Final.Level != risk.LevelHigh || !slices.Contains(c.Final.Reasons, risk.ReasonVeryNewAccount) {
		return
	}
	sig := &scorestore.AltSignal{
		CommunityID: c.Member.CommunityID,
		MemberID:    c.Member.MemberID,
		Method:      "join_risk_heuristic",
		Confidence:  0.6,
	}
	sig.EncodeEvidence(map[string]any{
		"score":            c.Final.Score,
		"account_age_days": c.Base.AccountAgeDays,
		"join_velocity":    c.Base.JoinVelocity,
	})
	if err := eng.Scores.AppendAltSignal(c.Ctx, sig); err != nil {
		c.Logger.Warn("failed to record alt signal", "err", err)
		return
	}
	altSignalCount.Inc()
	c.Logger.Info("flagged suspected alt account", "method", sig.Method, "confidence", sig.Confidence)
	eng.emitAudit(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, audit.TypeAltFlagged, map[string]any{
		"method":     sig.Method,
		"confidence": sig.Confidence,
	})
}

// ProcessMemberLeave clears any in-flight challenge so a later rejoin starts
// fresh. Assessments and audit history stay.
func (eng *Engine) ProcessMemberLeave(ctx context.Context, communityID, memberID string) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("admission event execution exception", "err", r, "community", communityID, "member", memberID)
		}
	}()
	logger := eng.Logger.With("community", communityID, "member", memberID, "event", "leave")
	if err := eng.Challenges.DeletePair(ctx, communityID, memberID); err != nil {
		return err
	}
	eng.emitAudit(ctx, logger, communityID, memberID, audit.TypeMemberLeft, nil)
	logger.Debug("cleared challenge state on leave")
	return nil
}

func (eng *Engine) emitAudit(ctx context.Context, logger *slog.Logger, communityID, memberID, eventType string, payload map[string]any) {
	if eng.Audit == nil {
		return
	}
	if err := eng.Audit.Emit(ctx, audit.New(communityID, memberID, eventType, payload)); err != nil {
		logger.Warn("failed to emit audit event", "err", err, "auditType", eventType)
	}
}

// isMissingMember matches the platform's 404 for members who left (or were
// removed) between the event and our API call.
func isMissingMember(err error) bool {
	var apiErr *platform.APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
