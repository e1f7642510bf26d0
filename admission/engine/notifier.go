package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

// Escalation is everything a staff notice needs to show how a risky join
// scored, including the arithmetic so staff can sanity-check the number.
type Escalation struct {
	CommunityID string
	MemberID    string
	DisplayName string

	Score       int
	Level       risk.Level
	Base        int
	TrustScore  int
	TrustAdj    float64
	ThreatBoost float64
	Reasons     []risk.Reason

	AccountAgeDays int
	JoinVelocity   int
}

// StaffNotifier pushes escalation and review notices to community staff.
type StaffNotifier interface {
	Notify(ctx context.Context, webhookURL string, text string) error
}

// WebhookNotifier posts notices to a staff channel via "incoming webhook".
//
// The webhook must be already configured in the staff workspace.
type WebhookNotifier struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
	// DefaultWebhookURL covers communities without their own webhook.
	DefaultWebhookURL string
}

type webhookBody struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, webhookURL string, text string) error {
	if webhookURL == "" {
		webhookURL = n.DefaultWebhookURL
	}
	if webhookURL == "" {
		// no webhook configured anywhere; notices just drop
		return nil
	}
	body, err := json.Marshal(webhookBody{Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return fmt.Errorf("failed staff webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func escalationBody(esc *Escalation) string {
	msg := "⚠️ Admission Risk Escalation ⚠️\n"
	msg += fmt.Sprintf("%s joining `%s`\n", memberLabel(esc.DisplayName, esc.MemberID), esc.CommunityID)
	msg += fmt.Sprintf("Risk: %s (%d/100)\n", esc.Level, esc.Score)
	msg += fmt.Sprintf("Breakdown: base %d, trust adjustment %.1f (trust %d), threat boost %.1f\n", esc.Base, esc.TrustAdj, esc.TrustScore, esc.ThreatBoost)
	if len(esc.Reasons) > 0 {
		msg += fmt.Sprintf("Signals: `%s`\n", strings.Join(risk.ReasonStrings(esc.Reasons), ", "))
	}
	if esc.AccountAgeDays >= 0 {
		msg += fmt.Sprintf("Account age: %d days\n", esc.AccountAgeDays)
	}
	if esc.JoinVelocity > 0 {
		msg += fmt.Sprintf("Joins in window: %d\n", esc.JoinVelocity)
	}
	return msg
}

func memberLabel(displayName, memberID string) string {
	if displayName == "" {
		return fmt.Sprintf("`%s`", memberID)
	}
	return fmt.Sprintf("`%s` (`%s`)", displayName, memberID)
}

// notifyStaffReview tells staff a join is parked on the web review surface,
// with the link (or bare token) they need to decide it.
func (eng *Engine) notifyStaffReview(c *JoinContext, chal *chalstore.Challenge) {
	if eng.Notifier == nil {
		return
	}
	msg := "🔍 Join held for staff review\n"
	msg += fmt.Sprintf("%s in `%s`\n", memberLabel(c.Member.DisplayName, c.Member.MemberID), c.Member.CommunityID)
	msg += fmt.Sprintf("Risk: %s (%d/100)\n", c.Final.Level, c.Final.Score)
	if eng.ReviewURLBase != "" {
		msg += fmt.Sprintf("Review: %s/review/%s\n", strings.TrimRight(eng.ReviewURLBase, "/"), chal.ReviewToken)
	} else {
		msg += fmt.Sprintf("Review token: `%s`\n", chal.ReviewToken)
	}
	if err := eng.Notifier.Notify(c.Ctx, c.Config.StaffWebhookURL, msg); err != nil {
		c.Logger.Warn("staff review notice failed", "err", err)
	}
}
