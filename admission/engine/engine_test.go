package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darklock-net/gatehouse/admission/allowstore"
	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/intelstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

func testNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

// testMember builds a join event for an account created `age` before the
// test clock.
func testMember(communityID, memberID string, age time.Duration, avatar bool, mutuals int) risk.MemberMeta {
	created := testNow().Add(-age)
	return risk.MemberMeta{
		CommunityID: communityID,
		MemberID:    memberID,
		DisplayName: "member " + memberID,
		CreatedAt:   &created,
		HasAvatar:   avatar,
		MutualCount: mutuals,
	}
}

func fixedFixture() *EngineTestFixture {
	fix := NewEngineTestFixture()
	fix.Engine.Now = testNow
	fix.Engine.Scorer.Now = testNow
	return fix
}

func TestJoinEstablishedMemberPasses(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	member := testMember("c1", "m1", 400*24*time.Hour, true, 3)
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m1")
	assert.NoError(err)
	assert.Nil(chal)
	assert.Empty(fix.Platform.Kicks)
	assert.Contains(fix.Audit.Types(), audit.TypeAutoVerified)
}

func TestJoinSuspiciousGetsButtonChallenge(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		Profile:            configstore.ProfileStandard,
		VerificationMethod: configstore.MethodAuto,
		EnableAdvancedScan: true,
		RestrictedRoleID:   "r-hold",
		VerifiedRoleID:     "r-ok",
		FallbackChannelID:  "ch-gate",
	}))

	// twelve hours old, default avatar, no shared communities
	member := testMember("c1", "m2", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	rec, err := fix.Scores.GetAssessment(ctx, "c1", "m2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(63, rec.Score)
	assert.Equal("medium", rec.Level)
	assert.Equal(1, rec.JoinVelocity)
	assert.Equal([]string{"very_new_account", "no_avatar", "no_mutuals"}, rec.DecodeReasons())

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m2")
	require.NoError(t, err)
	require.NotNil(t, chal)
	assert.Equal(chalstore.ModeButton, chal.Mode)
	assert.Equal(5, chal.MaxAttempts)
	assert.Equal(testNow().Add(10*time.Minute), chal.ExpiresAt)
	assert.NotEmpty(chal.SecretHash)
	assert.Empty(chal.DisplayCode)

	assert.True(fix.Platform.HasRole("c1", "m2", "r-hold"))
	assert.False(fix.Platform.HasRole("c1", "m2", "r-ok"))

	msg := fix.Platform.LastDirect()
	require.NotNil(t, msg)
	require.Len(t, msg.Msg.Components, 1)
	assert.Equal("gatehouse:verify:c1", msg.Msg.Components[0].CustomID)

	assert.Equal([]string{audit.TypeAssessed, audit.TypeChallengeIssued}, fix.Audit.Types())
}

func TestJoinHighRiskNewAccountFlagsAlt(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		EnableAdvancedScan: true,
	}))
	fix.Intel.SetTrust("c1", "m20", intelstore.TrustRecord{TrustScore: 20})

	// brand new account with bad trust history: 75 base, +12 trust penalty
	member := testMember("c1", "m20", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	rec, err := fix.Scores.GetAssessment(ctx, "c1", "m20")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(87, rec.Score)
	assert.Equal("high", rec.Level)

	sigs, err := fix.Scores.ListAltSignals(ctx, "c1", "m20")
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal("join_risk_heuristic", sigs[0].Method)
	assert.Equal(0.6, sigs[0].Confidence)
	evidence := sigs[0].DecodeEvidence()
	assert.Equal(float64(87), evidence["score"])
	assert.Equal(float64(0), evidence["account_age_days"])
	assert.Contains(fix.Audit.Types(), audit.TypeAltFlagged)

	// same account shape without the trust history stays medium: no signal
	other := testMember("c1", "m21", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, other))
	sigs, err = fix.Scores.ListAltSignals(ctx, "c1", "m21")
	require.NoError(t, err)
	assert.Empty(sigs)
}

func TestJoinAllowListBypass(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		EnableAdvancedScan: true,
		VerifiedRoleID:     "r-ok",
	}))
	require.NoError(t, fix.Allow.Add(ctx, &allowstore.AllowEntry{
		CommunityID: "c1",
		SubjectID:   "m3",
		SubjectKind: allowstore.SubjectMember,
	}))

	member := testMember("c1", "m3", time.Hour, false, 0)
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m3")
	assert.NoError(err)
	assert.Nil(chal)
	assert.True(fix.Platform.HasRole("c1", "m3", "r-ok"))
	assert.Equal([]string{audit.TypeAllowBypass}, fix.Audit.Types())
}

func TestJoinAllowListRoleMatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Allow.Add(ctx, &allowstore.AllowEntry{
		CommunityID: "c1",
		SubjectID:   "partner-bots",
		SubjectKind: allowstore.SubjectRole,
	}))

	member := testMember("c1", "m4", time.Hour, false, 0)
	member.RoleIDs = []string{"partner-bots"}
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Equal([]string{audit.TypeAllowBypass}, fix.Audit.Types())
}

func TestJoinAgeFloorKick(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:       "c1",
		MinAccountAgeDays: 30,
		AutoKickOnAgeFail: true,
	}))

	member := testMember("c1", "m5", 5*24*time.Hour, true, 2)
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))

	require.Len(t, fix.Platform.Kicks, 1)
	assert.Equal("m5", fix.Platform.Kicks[0].MemberID)
	assert.Equal([]string{audit.TypeAgeFloorKick}, fix.Audit.Types())

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m5")
	assert.NoError(err)
	assert.Nil(chal)
}

func TestJoinAgeFloorWithoutKickContinues(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:       "c1",
		MinAccountAgeDays: 30,
		AutoKickOnAgeFail: false,
	}))

	member := testMember("c1", "m6", 5*24*time.Hour, true, 2)
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))

	assert.Empty(fix.Platform.Kicks)
	assert.Contains(fix.Audit.Types(), audit.TypeAssessed)
}

func TestJoinUnknownAgeSkipsFloor(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:       "c1",
		MinAccountAgeDays: 30,
		AutoKickOnAgeFail: true,
	}))

	member := testMember("c1", "m7", time.Hour, true, 2)
	member.CreatedAt = nil
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Empty(fix.Platform.Kicks)
}

func TestJoinUltraProfileGoesToReview(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:      "c1",
		Profile:          configstore.ProfileUltra,
		RestrictedRoleID: "r-hold",
	}))

	member := testMember("c1", "m8", 400*24*time.Hour, true, 5)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m8")
	require.NoError(t, err)
	require.NotNil(t, chal)
	assert.Equal(chalstore.ModeWeb, chal.Mode)
	assert.NotEmpty(chal.ReviewToken)
	assert.True(fix.Platform.HasRole("c1", "m8", "r-hold"))

	// staff got the review pointer even though risk was low
	require.Equal(1, fix.Notifier.Count())
	assert.Contains(fix.Notifier.Sent[0], chal.ReviewToken)
}

func TestJoinHighProfileChallengesEveryone(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID: "c1",
		Profile:     configstore.ProfileHigh,
	}))

	member := testMember("c1", "m9", 400*24*time.Hour, true, 5)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m9")
	require.NoError(t, err)
	require.NotNil(t, chal)
	assert.Equal(chalstore.ModeButton, chal.Mode)
}

func TestJoinExplicitCodeMethod(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		VerificationMethod: configstore.MethodCode,
	}))

	member := testMember("c1", "m10", 400*24*time.Hour, true, 5)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	chal, err := fix.Challenges.GetPending(ctx, "c1", "m10")
	require.NoError(t, err)
	require.NotNil(t, chal)
	assert.Equal(chalstore.ModeCode, chal.Mode)
	assert.Regexp(`^[1-9][0-9]{3,5}$`, chal.DisplayCode)

	msg := fix.Platform.LastDirect()
	require.NotNil(t, msg)
	assert.Contains(msg.Msg.Content, chal.DisplayCode)
}

func TestJoinDeliveryFallsBackToChannel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	fix.Platform.FailDirect = true

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		VerificationMethod: configstore.MethodButton,
		FallbackChannelID:  "ch-gate",
	}))

	member := testMember("c1", "m11", 400*24*time.Hour, true, 5)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	assert.Empty(fix.Platform.Direct)
	require.Len(t, fix.Platform.Channel, 1)
	sent := fix.Platform.Channel[0]
	assert.Equal("ch-gate", sent.ChannelID)
	assert.True(strings.HasPrefix(sent.Msg.Content, "<@m11>"))
	assert.Len(sent.Msg.Components, 1)
}

func TestJoinFailOpenOnIntelOutage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	fix.Engine.Intel = DownIntelStore{}

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		EnableAdvancedScan: true,
	}))

	// same shape as the suspicious-join case; the unreachable intel store
	// must behave exactly like a member with no history
	member := testMember("c1", "m12", 12*time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))

	rec, err := fix.Scores.GetAssessment(ctx, "c1", "m12")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(63, rec.Score)
	assert.Equal("medium", rec.Level)
}

func TestRejoinReplacesPendingChallenge(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		VerificationMethod: configstore.MethodCode,
	}))

	member := testMember("c1", "m13", time.Hour, false, 0)
	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	first, err := fix.Challenges.GetPending(ctx, "c1", "m13")
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, fix.Engine.ProcessMemberLeave(ctx, "c1", "m13"))
	gone, err := fix.Challenges.GetPending(ctx, "c1", "m13")
	require.NoError(t, err)
	assert.Nil(gone)

	require.NoError(t, fix.Engine.ProcessJoinEvent(ctx, member))
	second, err := fix.Challenges.GetPending(ctx, "c1", "m13")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(first.SecretHash, second.SecretHash)
}

func TestJoinMemberAlreadyGone(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := fixedFixture()
	fix.Platform.MissingMembers["m14"] = true

	require.NoError(t, fix.Configs.Put(ctx, &configstore.CommunityConfig{
		CommunityID:        "c1",
		VerificationMethod: configstore.MethodButton,
		RestrictedRoleID:   "r-hold",
	}))

	// the 404 on the role change must not fail the pipeline
	member := testMember("c1", "m14", time.Hour, false, 0)
	assert.NoError(fix.Engine.ProcessJoinEvent(ctx, member))
	assert.Contains(fix.Audit.Types(), audit.TypeChallengeIssued)
}
