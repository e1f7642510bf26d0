package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/platform"
)

// completeChallenge moves a pending challenge to completed and finalizes the
// member. Exactly one concurrent responder wins the transition; the rest see
// OutcomeNoChallenge and change nothing.
func (eng *Engine) completeChallenge(c *ResponseContext, payload map[string]any) (Outcome, error) {
	transitioned, err := eng.Challenges.MarkStatus(c.Ctx, c.Challenge.ID, chalstore.StatusCompleted)
	if err != nil {
		return OutcomeError, fmt.Errorf("completing challenge: %w", err)
	}
	if !transitioned {
		return OutcomeNoChallenge, nil
	}
	eng.finalizeVerified(c.Ctx, c.Logger, c.CommunityID, c.MemberID, c.Config, payload)
	eng.notifyMember(c.Ctx, c.Logger, c.Config, c.CommunityID, c.MemberID, &platform.Message{
		Content: "You're verified. Welcome in!",
	})
	c.Logger.Info("member verified", "mode", c.Challenge.Mode)
	responseEventCount.WithLabelValues("verified").Inc()
	return OutcomeVerified, nil
}

// finalizeVerified flips membership state for a verified member: verified
// role on, restricted role off, trust record stamped. Each step is best
// effort; a partial flip is caught by staff through the audit trail.
func (eng *Engine) finalizeVerified(ctx context.Context, logger *slog.Logger, communityID, memberID string, cfg *configstore.CommunityConfig, payload map[string]any) {
	eng.adjustRole(ctx, logger, communityID, memberID, cfg.VerifiedRoleID, true)
	eng.adjustRole(ctx, logger, communityID, memberID, cfg.RestrictedRoleID, false)
	if err := eng.Intel.TouchVerified(ctx, communityID, memberID, eng.clock()); err != nil {
		logger.Warn("failed to stamp verification on trust record", "err", err)
	}
	eng.emitAudit(ctx, logger, communityID, memberID, audit.TypeVerified, payload)
}

// adjustRole applies or removes a role, tolerating members who already left.
// No-op for an empty role ID.
func (eng *Engine) adjustRole(ctx context.Context, logger *slog.Logger, communityID, memberID, roleID string, assign bool) {
	if roleID == "" {
		return
	}
	var err error
	op := "assign"
	if assign {
		err = eng.Roles.AssignRole(ctx, communityID, memberID, roleID)
	} else {
		op = "remove"
		err = eng.Roles.RemoveRole(ctx, communityID, memberID, roleID)
	}
	if err == nil {
		return
	}
	if isMissingMember(err) {
		logger.Info("member gone before role change", "role", roleID, "op", op)
		return
	}
	logger.Warn("role change failed", "err", err, "role", roleID, "op", op)
}
