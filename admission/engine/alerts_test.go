package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/intelstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

func escalationConfig(communityID string) *configstore.CommunityConfig {
	return &configstore.CommunityConfig{
		CommunityID:           communityID,
		EnableAdvancedScan:    true,
		EnableStaffEscalation: true,
		StaffWebhookURL:       "https://hooks.example.net/staff",
	}
}

func TestAlertThrottler(t *testing.T) {
	assert := assert.New(t)
	throttle := NewAlertThrottler(15 * time.Minute)
	now := testNow()

	assert.True(throttle.ShouldAlert("c1", "m1", risk.LevelMedium, now))
	throttle.Record("c1", "m1", risk.LevelMedium, now)

	// same or lower level stays quiet inside the window
	assert.False(throttle.ShouldAlert("c1", "m1", risk.LevelMedium, now.Add(time.Minute)))
	assert.False(throttle.ShouldAlert("c1", "m1", risk.LevelElevated, now.Add(time.Minute)))

	// strictly worse level breaks through
	assert.True(throttle.ShouldAlert("c1", "m1", risk.LevelHigh, now.Add(time.Minute)))

	// other pairs are unaffected
	assert.True(throttle.ShouldAlert("c1", "m2", risk.LevelMedium, now.Add(time.Minute)))
	assert.True(throttle.ShouldAlert("c2", "m1", risk.LevelMedium, now.Add(time.Minute)))

	// window over, same level fires again
	assert.True(throttle.ShouldAlert("c1", "m1", risk.LevelMedium, now.Add(16*time.Minute)))
}

func TestEscalationSendsOnceWithBreakdown(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	require.NoError(t, fix.Configs.Put(ctx, escalationConfig("c1")))

	member := testMember("c1", "m1", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	require.Equal(1, fix.Notifier.Count())
	assert.Contains(fix.Notifier.Sent[0], "Risk: medium (63/100)")
	assert.Contains(fix.Notifier.Sent[0], "base 75")
	assert.Contains(fix.Notifier.Sent[0], "very_new_account")
	assert.Contains(fix.Audit.Types(), audit.TypeEscalated)

	// immediate rejoin at the same level stays quiet
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Equal(1, fix.Notifier.Count())
}

func TestEscalationWorseLevelBreaksThrough(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	require.NoError(t, fix.Configs.Put(ctx, escalationConfig("c1")))

	member := testMember("c1", "m2", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	require.Equal(1, fix.Notifier.Count())

	// threat intel lands between joins, pushing the member to high
	fix.Intel.AddThreat("m2", intelstore.ThreatRecord{Severity: intelstore.SeverityCritical, Type: "botnet", Active: true})
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	require.Equal(2, fix.Notifier.Count())
	assert.Contains(fix.Notifier.Sent[1], "Risk: high (100/100)")
}

func TestEscalationSuppressedByTrustOverride(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	require.NoError(t, fix.Configs.Put(ctx, escalationConfig("c1")))

	fix.Intel.SetTrust("c1", "m3", intelstore.TrustRecord{TrustScore: 75, ManualOverride: true})
	fix.Intel.AddThreat("m3", intelstore.ThreatRecord{Severity: intelstore.SeverityCritical, Type: "stale-report", Active: true})

	member := testMember("c1", "m3", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	assert.Equal(0, fix.Notifier.Count())
	assert.NotContains(fix.Audit.Types(), audit.TypeEscalated)
}

func TestEscalationOverrideBelowFloorStillFires(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	require.NoError(t, fix.Configs.Put(ctx, escalationConfig("c1")))

	// overridden but not actually trusted
	fix.Intel.SetTrust("c1", "m4", intelstore.TrustRecord{TrustScore: 20, ManualOverride: true})

	member := testMember("c1", "m4", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Equal(1, fix.Notifier.Count())
}

func TestEscalationRetriesAfterSendFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	require.NoError(t, fix.Configs.Put(ctx, escalationConfig("c1")))
	fix.Notifier.Fail = true

	member := testMember("c1", "m5", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Equal(0, fix.Notifier.Count())

	// failed send left no cooldown behind, so the next join tries again
	fix.Notifier.Fail = false
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Equal(1, fix.Notifier.Count())
}

func TestEscalationDisabledByDefault(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		EnableAdvancedScan: true,
	}))

	member := testMember("c1", "m6", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Equal(0, fix.Notifier.Count())
}
