package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
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

// EngineTestFixture wires an engine against in-memory stores and a fake
// platform, for tests in this package and downstream.
type EngineTestFixture struct {
	Engine     *Engine
	Platform   *FakePlatform
	Notifier   *RecordingNotifier
	Audit      *RecordingSink
	Challenges *chalstore.MemChallengeStore
	Intel      *intelstore.MemIntelStore
	Scores     *scorestore.MemScoreStore
	Allow      *allowstore.MemAllowStore
	Configs    *configstore.MemConfigStore
}

func NewEngineTestFixture() *EngineTestFixture {
	fix := &EngineTestFixture{
		Platform:   NewFakePlatform(),
		Notifier:   &RecordingNotifier{},
		Audit:      &RecordingSink{},
		Challenges: chalstore.NewMemChallengeStore(),
		Intel:      intelstore.NewMemIntelStore(),
		Scores:     scorestore.NewMemScoreStore(),
		Allow:      allowstore.NewMemAllowStore(),
		Configs:    configstore.NewMemConfigStore(),
	}
	fix.Engine = &Engine{
		Logger:     slog.Default(),
		Scorer:     risk.NewScorer(),
		Configs:    fix.Configs,
		Challenges: fix.Challenges,
		Intel:      fix.Intel,
		Scores:     fix.Scores,
		AllowList:  fix.Allow,
		Audit:      fix.Audit,
		Roles:      fix.Platform,
		Messenger:  fix.Platform,
		Notifier:   fix.Notifier,
		Alerts:     NewAlertThrottler(0),
		Cooldown:   NewActionCooldown(0),
	}
	return fix
}

type RoleChange struct {
	CommunityID string
	MemberID    string
	RoleID      string
	Assigned    bool
}

type KickCall struct {
	CommunityID string
	MemberID    string
	Reason      string
}

type SentMessage struct {
	CommunityID string
	ChannelID   string
	MemberID    string
	Msg         platform.Message
}

// FakePlatform records every platform call instead of making it. Implements
// RoleClient and Messenger.
type FakePlatform struct {
	lk sync.Mutex

	// FailDirect makes direct sends 404, exercising the channel fallback.
	FailDirect bool
	// MissingMembers makes role changes and kicks for these member IDs 404.
	MissingMembers map[string]bool

	Roles   []RoleChange
	Kicks   []KickCall
	Direct  []SentMessage
	Channel []SentMessage
}

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{MissingMembers: make(map[string]bool)}
}

func (f *FakePlatform) missing(memberID string) error {
	if f.MissingMembers[memberID] {
		return &platform.APIError{StatusCode: 404, Code: "member_not_found", Message: "no such member"}
	}
	return nil
}

func (f *FakePlatform) AssignRole(ctx context.Context, communityID, memberID, roleID string) error {
	f.lk.Lock()
	defer f.lk.Unlock()
	if err := f.missing(memberID); err != nil {
		return err
	}
	f.Roles = append(f.Roles, RoleChange{communityID, memberID, roleID, true})
	return nil
}

func (f *FakePlatform) RemoveRole(ctx context.Context, communityID, memberID, roleID string) error {
	f.lk.Lock()
	defer f.lk.Unlock()
	if err := f.missing(memberID); err != nil {
		return err
	}
	f.Roles = append(f.Roles, RoleChange{communityID, memberID, roleID, false})
	return nil
}

func (f *FakePlatform) Kick(ctx context.Context, communityID, memberID, reason string) error {
	f.lk.Lock()
	defer f.lk.Unlock()
	if err := f.missing(memberID); err != nil {
		return err
	}
	f.Kicks = append(f.Kicks, KickCall{communityID, memberID, reason})
	return nil
}

func (f *FakePlatform) SendDirect(ctx context.Context, memberID string, msg *platform.Message) error {
	f.lk.Lock()
	defer f.lk.Unlock()
	if f.FailDirect {
		return &platform.APIError{StatusCode: 403, Code: "direct_messages_disabled", Message: "member does not accept direct messages"}
	}
	f.Direct = append(f.Direct, SentMessage{MemberID: memberID, Msg: *msg})
	return nil
}

func (f *FakePlatform) SendChannel(ctx context.Context, communityID, channelID string, msg *platform.Message) error {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.Channel = append(f.Channel, SentMessage{CommunityID: communityID, ChannelID: channelID, Msg: *msg})
	return nil
}

// HasRole replays recorded role changes and reports the member's final state.
func (f *FakePlatform) HasRole(communityID, memberID, roleID string) bool {
	f.lk.Lock()
	defer f.lk.Unlock()
	held := false
	for _, rc := range f.Roles {
		if rc.CommunityID == communityID && rc.MemberID == memberID && rc.RoleID == roleID {
			held = rc.Assigned
		}
	}
	return held
}

// LastDirect returns the most recent direct message, or nil.
func (f *FakePlatform) LastDirect() *SentMessage {
	f.lk.Lock()
	defer f.lk.Unlock()
	if len(f.Direct) == 0 {
		return nil
	}
	m := f.Direct[len(f.Direct)-1]
	return &m
}

// RecordingNotifier captures staff notices instead of posting them.
type RecordingNotifier struct {
	lk sync.Mutex

	// Fail makes every notice error, for exercising retry behavior.
	Fail bool

	Sent []string
}

func (n *RecordingNotifier) Notify(ctx context.Context, webhookURL string, text string) error {
	n.lk.Lock()
	defer n.lk.Unlock()
	if n.Fail {
		return fmt.Errorf("staff webhook unreachable")
	}
	n.Sent = append(n.Sent, text)
	return nil
}

func (n *RecordingNotifier) Count() int {
	n.lk.Lock()
	defer n.lk.Unlock()
	return len(n.Sent)
}

// RecordingSink captures audit events for assertions.
type RecordingSink struct {
	lk     sync.Mutex
	Events []audit.Event
}

func (s *RecordingSink) Emit(ctx context.Context, evt audit.Event) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.Events = append(s.Events, evt)
	return nil
}

// Types returns the emitted event types, in order.
func (s *RecordingSink) Types() []string {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]string, len(s.Events))
	for i, evt := range s.Events {
		out[i] = evt.Type
	}
	return out
}

// DownIntelStore fails every read, for exercising the fail-open paths.
type DownIntelStore struct{}

func (DownIntelStore) GetTrust(ctx context.Context, communityID, memberID string) (intelstore.TrustRecord, bool) {
	return intelstore.TrustRecord{}, false
}

func (DownIntelStore) ActiveThreats(ctx context.Context, memberID string) ([]intelstore.ThreatRecord, bool) {
	return nil, false
}

func (DownIntelStore) TouchVerified(ctx context.Context, communityID, memberID string, when time.Time) error {
	return fmt.Errorf("intel store offline")
}
