package engine

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/platform"
)

// verifyCustomIDPrefix namespaces our button interactions so the consumer
// can route them. The community ID rides along because interactions from
// direct-message surfaces don't always carry one.
const verifyCustomIDPrefix = "gatehouse:verify:"

// VerifyCustomID builds the component ID attached to challenge buttons.
func VerifyCustomID(communityID string) string {
	return verifyCustomIDPrefix + communityID
}

// ParseVerifyCustomID extracts the community from a button interaction's
// component ID. False for interactions that aren't ours.
func ParseVerifyCustomID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, verifyCustomIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(customID, verifyCustomIDPrefix), true
}

// issueChallenge applies the restricted role, persists a fresh challenge for
// the pair, and delivers the instructions. Any previously pending challenge
// for the pair is displaced.
func (eng *Engine) issueChallenge(c *JoinContext, mode chalstore.Mode) error {
	eng.adjustRole(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, c.Config.RestrictedRoleID, true)

	secret, display, err := newSecret(mode)
	if err != nil {
		return fmt.Errorf("generating challenge secret: %w", err)
	}
	now := eng.clock()
	chal := &chalstore.Challenge{
		CommunityID: c.Member.CommunityID,
		MemberID:    c.Member.MemberID,
		Mode:        mode,
		Status:      chalstore.StatusPending,
		SecretHash:  hashSecret(secret),
		DisplayCode: display,
		IssuedAt:    now,
		ExpiresAt:   now.Add(c.Config.ChallengeTTL()),
		MaxAttempts: c.Config.AttemptLimit(),
	}
	if mode == chalstore.ModeWeb {
		chal.ReviewToken = uuid.NewString()
	}
	if err := eng.Challenges.Replace(c.Ctx, chal); err != nil {
		return fmt.Errorf("storing challenge: %w", err)
	}
	challengeIssuedCount.WithLabelValues(string(mode)).Inc()
	eng.emitAudit(c.Ctx, c.Logger, c.Member.CommunityID, c.Member.MemberID, audit.TypeChallengeIssued, map[string]any{
		"mode":      string(mode),
		"expiresAt": chal.ExpiresAt.UTC().Format(time.RFC3339),
	})
	c.Logger.Info("challenge issued", "mode", mode, "expiresAt", chal.ExpiresAt)

	eng.notifyMember(c.Ctx, c.Logger, c.Config, c.Member.CommunityID, c.Member.MemberID, challengeMessage(c.Config, chal))
	if mode == chalstore.ModeWeb {
		eng.notifyStaffReview(c, chal)
	}
	return nil
}

// newSecret generates the challenge secret. Code mode gets a short numeric
// code the member can retype; other modes get an opaque token that is never
// shown and only exists so the stored hash is unguessable.
func newSecret(mode chalstore.Mode) (secret string, display string, err error) {
	if mode == chalstore.ModeCode {
		code, err := randomCode()
		if err != nil {
			return "", "", err
		}
		return code, code, nil
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(buf), "", nil
}

// randomCode picks a numeric code of four to six digits, no leading zero,
// so the printed form is exactly what the member types back.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(3))
	if err != nil {
		return "", err
	}
	low := int64(1000)
	for i := int64(0); i < n.Int64(); i++ {
		low *= 10
	}
	off, err := rand.Int(rand.Reader, big.NewInt(low*9))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(low+off.Int64(), 10), nil
}

// hashSecret normalizes and hashes a challenge response for comparison
// against the stored hash. Case and surrounding whitespace are forgiven.
func hashSecret(secret string) string {
	norm := strings.ToLower(strings.TrimSpace(secret))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func challengeMessage(cfg *configstore.CommunityConfig, chal *chalstore.Challenge) *platform.Message {
	minutes := int(cfg.ChallengeTTL() / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	switch chal.Mode {
	case chalstore.ModeButton:
		return &platform.Message{
			Content: fmt.Sprintf("Welcome! Press **Verify** below within %d minutes to unlock the community.", minutes),
			Components: []platform.Component{{
				Type:     platform.ComponentButton,
				Label:    "Verify",
				CustomID: VerifyCustomID(chal.CommunityID),
				Style:    "primary",
			}},
		}
	case chalstore.ModeWeb:
		return &platform.Message{
			Content: "Welcome! This community reviews new joins. Staff have been notified; you'll get a message here once a decision is made.",
		}
	default:
		return &platform.Message{
			Content: fmt.Sprintf("Welcome! Your verification code is `%s`. Reply with it here, or use the /verify command in the community, within %d minutes.", chal.DisplayCode, minutes),
		}
	}
}

// notifyMember delivers a notice over direct message, falling back to the
// community's fallback channel with a mention. Delivery failure never fails
// the pipeline; the challenge stands either way.
func (eng *Engine) notifyMember(ctx context.Context, logger *slog.Logger, cfg *configstore.CommunityConfig, communityID, memberID string, msg *platform.Message) {
	if eng.Messenger == nil {
		return
	}
	err := eng.Messenger.SendDirect(ctx, memberID, msg)
	if err == nil {
		challengeDeliveryCount.WithLabelValues("direct", "ok").Inc()
		return
	}
	challengeDeliveryCount.WithLabelValues("direct", "failed").Inc()
	logger.Info("direct delivery failed, trying fallback channel", "err", err)

	if cfg == nil || cfg.FallbackChannelID == "" {
		logger.Warn("notice undeliverable, no fallback channel configured")
		return
	}
	fallback := &platform.Message{
		Content:    platform.Mention(memberID) + " " + msg.Content,
		Components: msg.Components,
	}
	if err := eng.Messenger.SendChannel(ctx, communityID, cfg.FallbackChannelID, fallback); err != nil {
		challengeDeliveryCount.WithLabelValues("channel", "failed").Inc()
		logger.Warn("fallback channel delivery failed", "err", err)
		return
	}
	challengeDeliveryCount.WithLabelValues("channel", "ok").Inc()
}
