package engine

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/platform"
)

// Outcome summarizes what a challenge response did, for callers that shape
// a reply to the responder (interaction acks, the review API).
type Outcome string

const (
	// OutcomeNoChallenge means nothing was pending for the pair, either
	// because none was issued or a concurrent response settled it first.
	OutcomeNoChallenge Outcome = "no_challenge"
	// OutcomeIgnored means the response arrived on a surface the challenge
	// mode doesn't accept; the member was pointed at the right one.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeThrottled means a duplicate interactive click inside the
	// cooldown window was dropped.
	OutcomeThrottled     Outcome = "throttled"
	OutcomeExpired       Outcome = "expired"
	OutcomeMismatch      Outcome = "mismatch"
	OutcomeLockout       Outcome = "lockout"
	OutcomeVerified      Outcome = "verified"
	OutcomePendingReview Outcome = "pending_review"
	OutcomeDenied        Outcome = "denied"
	OutcomeError         Outcome = "error"
)

// ProcessResponseEvent handles a member's challenge response from any
// surface: a direct-message reply, a message in the verification channel, a
// button click, the pop-up form, or the slash command.
func (eng *Engine) ProcessResponseEvent(ctx context.Context, communityID, memberID string, surface ResponseSurface, input string) (out Outcome, err error) {
	// similar to an HTTP server, we want to recover any panics from pipeline
	// execution; the responder still gets an outcome to ack with
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("admission event execution exception", "err", r, "community", communityID, "member", memberID, "surface", surface)
			responseEventCount.WithLabelValues("panic").Inc()
			out = OutcomeError
		}
	}()

	if surface == SurfaceButton && eng.Cooldown != nil && eng.Cooldown.Throttled(communityID, memberID, "verify_click") {
		return OutcomeThrottled, nil
	}

	c := NewResponseContext(ctx, eng, communityID, memberID, surface, input)
	chal, err := eng.Challenges.GetPending(ctx, communityID, memberID)
	if err != nil {
		return OutcomeError, fmt.Errorf("loading pending challenge: %w", err)
	}
	if chal == nil {
		c.Logger.Debug("response with no pending challenge")
		responseEventCount.WithLabelValues("no_challenge").Inc()
		return OutcomeNoChallenge, nil
	}
	c.Challenge = chal

	cfg, err := eng.Configs.Get(ctx, communityID)
	if err != nil {
		c.Logger.Warn("community config read failed, running with defaults", "err", err)
	}
	c.Config = cfg

	// expiry wins over everything else, correct answers included
	if chal.Expired(eng.clock()) {
		return eng.expirePending(&c)
	}

	switch chal.Mode {
	case chalstore.ModeButton:
		if surface != SurfaceButton {
			eng.notifyMember(ctx, c.Logger, cfg, communityID, memberID, &platform.Message{
				Content: "To verify, press the **Verify** button on your challenge message.",
			})
			responseEventCount.WithLabelValues("ignored").Inc()
			return OutcomeIgnored, nil
		}
		// the click itself is the proof; no secret to compare
		return eng.completeChallenge(&c, map[string]any{"surface": string(surface)})
	case chalstore.ModeWeb:
		eng.notifyMember(ctx, c.Logger, cfg, communityID, memberID, &platform.Message{
			Content: "Your join is waiting on staff review; there's nothing to answer here. You'll be notified once a decision is made.",
		})
		responseEventCount.WithLabelValues("pending_review").Inc()
		return OutcomePendingReview, nil
	}

	// code mode
	if surface == SurfaceButton {
		responseEventCount.WithLabelValues("ignored").Inc()
		return OutcomeIgnored, nil
	}
	if matchesSecret(chal, input) {
		return eng.completeChallenge(&c, map[string]any{"surface": string(surface)})
	}
	return eng.recordFailedAttempt(&c)
}

// ProcessDirectResponse routes a direct-message reply, which carries no
// community scope, to the member's pending challenge. When challenges are
// pending in several communities at once, the reply is checked against each
// code first so a correct answer lands where it belongs; a miss burns an
// attempt only on the newest challenge.
func (eng *Engine) ProcessDirectResponse(ctx context.Context, memberID, input string) (Outcome, error) {
	pending, err := eng.Challenges.ListPendingForMember(ctx, memberID)
	if err != nil {
		return OutcomeError, fmt.Errorf("listing pending challenges: %w", err)
	}
	if len(pending) == 0 {
		return OutcomeNoChallenge, nil
	}
	target := pending[0]
	if len(pending) > 1 {
		for _, chal := range pending {
			if chal.Mode == chalstore.ModeCode && matchesSecret(chal, input) {
				target = chal
				break
			}
		}
	}
	return eng.ProcessResponseEvent(ctx, target.CommunityID, memberID, SurfaceDirect, input)
}

// ProcessReviewDecision applies a staff approve or deny to the web-review
// challenge identified by its token.
func (eng *Engine) ProcessReviewDecision(ctx context.Context, token string, approve bool, reviewer string) (out Outcome, err error) {
	// similar to an HTTP server, we want to recover any panics from pipeline
	// execution; the responder still gets an outcome to ack with
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("admission event execution exception", "err", r, "event", "review")
			responseEventCount.WithLabelValues("panic").Inc()
			out = OutcomeError
		}
	}()

	chal, err := eng.Challenges.GetPendingByReviewToken(ctx, token)
	if err != nil {
		return OutcomeError, fmt.Errorf("loading challenge by review token: %w", err)
	}
	if chal == nil {
		return OutcomeNoChallenge, nil
	}
	if eng.Cooldown != nil && eng.Cooldown.Throttled(chal.CommunityID, chal.MemberID, "review_decision") {
		return OutcomeThrottled, nil
	}

	c := NewResponseContext(ctx, eng, chal.CommunityID, chal.MemberID, SurfaceReview, "")
	c.Logger = c.Logger.With("reviewer", reviewer)
	c.Challenge = chal

	cfg, err := eng.Configs.Get(ctx, chal.CommunityID)
	if err != nil {
		c.Logger.Warn("community config read failed, running with defaults", "err", err)
	}
	c.Config = cfg

	if chal.Expired(eng.clock()) {
		return eng.expirePending(&c)
	}

	if approve {
		return eng.completeChallenge(&c, map[string]any{"reviewer": reviewer})
	}

	transitioned, err := eng.Challenges.MarkStatus(ctx, chal.ID, chalstore.StatusFailed)
	if err != nil {
		return OutcomeError, fmt.Errorf("denying challenge: %w", err)
	}
	if !transitioned {
		return OutcomeNoChallenge, nil
	}
	eng.emitAudit(ctx, c.Logger, chal.CommunityID, chal.MemberID, audit.TypeDenied, map[string]any{"reviewer": reviewer})
	eng.notifyMember(ctx, c.Logger, cfg, chal.CommunityID, chal.MemberID, &platform.Message{
		Content: "Community staff did not approve your join request.",
	})
	c.Logger.Info("review denied")
	responseEventCount.WithLabelValues("denied").Inc()
	return OutcomeDenied, nil
}

// matchesSecret compares a response against the stored hash. Older rows from
// before hashing keep the code in the clear, hence the display fallback.
func matchesSecret(chal *chalstore.Challenge, input string) bool {
	norm := strings.TrimSpace(input)
	if norm == "" {
		return false
	}
	if chal.SecretHash != "" && subtle.ConstantTimeCompare([]byte(hashSecret(norm)), []byte(chal.SecretHash)) == 1 {
		return true
	}
	if chal.SecretHash == "" && chal.DisplayCode != "" && strings.EqualFold(norm, chal.DisplayCode) {
		return true
	}
	return false
}

func (eng *Engine) expirePending(c *ResponseContext) (Outcome, error) {
	transitioned, err := eng.Challenges.MarkStatus(c.Ctx, c.Challenge.ID, chalstore.StatusExpired)
	if err != nil {
		return OutcomeError, fmt.Errorf("expiring challenge: %w", err)
	}
	if transitioned {
		eng.emitAudit(c.Ctx, c.Logger, c.CommunityID, c.MemberID, audit.TypeExpired, map[string]any{"mode": string(c.Challenge.Mode)})
		eng.notifyMember(c.Ctx, c.Logger, c.Config, c.CommunityID, c.MemberID, &platform.Message{
			Content: "Your verification window has closed. Leave and rejoin the community to get a fresh challenge.",
		})
		c.Logger.Info("challenge expired on response")
	}
	responseEventCount.WithLabelValues("expired").Inc()
	return OutcomeExpired, nil
}

func (eng *Engine) recordFailedAttempt(c *ResponseContext) (Outcome, error) {
	attempts, err := eng.Challenges.RecordAttempt(c.Ctx, c.Challenge.ID)
	if err != nil {
		return OutcomeError, fmt.Errorf("recording attempt: %w", err)
	}
	limit := c.Challenge.MaxAttempts
	if limit <= 0 {
		limit = configstore.DefaultMaxAttempts
	}
	if attempts >= limit {
		transitioned, err := eng.Challenges.MarkStatus(c.Ctx, c.Challenge.ID, chalstore.StatusFailed)
		if err != nil {
			return OutcomeError, fmt.Errorf("locking out challenge: %w", err)
		}
		if transitioned {
			eng.emitAudit(c.Ctx, c.Logger, c.CommunityID, c.MemberID, audit.TypeLockout, map[string]any{"attempts": attempts})
			eng.notifyMember(c.Ctx, c.Logger, c.Config, c.CommunityID, c.MemberID, &platform.Message{
				Content: "Too many incorrect codes; verification is locked. Contact the community staff for help.",
			})
			c.Logger.Info("challenge locked out", "attempts", attempts)
		}
		responseEventCount.WithLabelValues("lockout").Inc()
		return OutcomeLockout, nil
	}
	eng.notifyMember(c.Ctx, c.Logger, c.Config, c.CommunityID, c.MemberID, &platform.Message{
		Content: fmt.Sprintf("That code doesn't match. %d attempts remaining.", limit-attempts),
	})
	responseEventCount.WithLabelValues("mismatch").Inc()
	return OutcomeMismatch, nil
}
