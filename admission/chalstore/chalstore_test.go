package chalstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func runChallengeStoreSuite(t *testing.T, cs ChallengeStore) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	got, err := cs.GetPending(ctx, "c1", "m1")
	assert.NoError(err)
	assert.Nil(got)

	chal := &Challenge{
		CommunityID: "c1",
		MemberID:    "m1",
		Mode:        ModeCode,
		Status:      StatusPending,
		SecretHash:  "aabbcc",
		DisplayCode: "123456",
		IssuedAt:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
		MaxAttempts: 5,
	}
	assert.NoError(cs.Replace(ctx, chal))

	got, err = cs.GetPending(ctx, "c1", "m1")
	assert.NoError(err)
	if assert.NotNil(got) {
		assert.Equal(ModeCode, got.Mode)
		assert.Equal("123456", got.DisplayCode)
		assert.False(got.Expired(now))
		assert.True(got.Expired(now.Add(11 * time.Minute)))
	}

	// a new challenge replaces the old one; exactly one row remains
	repl := &Challenge{
		CommunityID: "c1",
		MemberID:    "m1",
		Mode:        ModeButton,
		Status:      StatusPending,
		SecretHash:  "ddeeff",
		IssuedAt:    now.Add(time.Minute),
		ExpiresAt:   now.Add(11 * time.Minute),
		MaxAttempts: 5,
	}
	assert.NoError(cs.Replace(ctx, repl))
	got, err = cs.GetPending(ctx, "c1", "m1")
	assert.NoError(err)
	if assert.NotNil(got) {
		assert.Equal(ModeButton, got.Mode)
		assert.Equal(0, got.Attempts)
	}

	n, err := cs.RecordAttempt(ctx, got.ID)
	assert.NoError(err)
	assert.Equal(1, n)
	n, err = cs.RecordAttempt(ctx, got.ID)
	assert.NoError(err)
	assert.Equal(2, n)

	// terminal transition happens exactly once
	ok, err := cs.MarkStatus(ctx, got.ID, StatusFailed)
	assert.NoError(err)
	assert.True(ok)
	ok, err = cs.MarkStatus(ctx, got.ID, StatusCompleted)
	assert.NoError(err)
	assert.False(ok)

	got, err = cs.GetPending(ctx, "c1", "m1")
	assert.NoError(err)
	assert.Nil(got)

	// web challenges resolve by review token while pending
	web := &Challenge{
		CommunityID: "c2",
		MemberID:    "m2",
		Mode:        ModeWeb,
		Status:      StatusPending,
		SecretHash:  "112233",
		ReviewToken: "tok-1",
		IssuedAt:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
		MaxAttempts: 5,
	}
	assert.NoError(cs.Replace(ctx, web))

	byTok, err := cs.GetPendingByReviewToken(ctx, "tok-1")
	assert.NoError(err)
	if assert.NotNil(byTok) {
		assert.Equal("m2", byTok.MemberID)
	}
	none, err := cs.GetPendingByReviewToken(ctx, "")
	assert.NoError(err)
	assert.Nil(none)

	ok, err = cs.MarkStatus(ctx, byTok.ID, StatusCompleted)
	assert.NoError(err)
	assert.True(ok)
	byTok, err = cs.GetPendingByReviewToken(ctx, "tok-1")
	assert.NoError(err)
	assert.Nil(byTok)

	// overdue pending challenges show up in the sweep listing
	stale := &Challenge{
		CommunityID: "c3",
		MemberID:    "m3",
		Mode:        ModeCode,
		Status:      StatusPending,
		SecretHash:  "445566",
		IssuedAt:    now.Add(-20 * time.Minute),
		ExpiresAt:   now.Add(-10 * time.Minute),
		MaxAttempts: 5,
	}
	assert.NoError(cs.Replace(ctx, stale))

	expired, err := cs.ListExpiredPending(ctx, now, 10)
	assert.NoError(err)
	if assert.Len(expired, 1) {
		assert.Equal("c3", expired[0].CommunityID)
	}

	assert.NoError(cs.DeletePair(ctx, "c3", "m3"))
	expired, err = cs.ListExpiredPending(ctx, now, 10)
	assert.NoError(err)
	assert.Empty(expired)

	// member-wide listing returns pending rows across communities, newest first
	for i, community := range []string{"cA", "cB"} {
		assert.NoError(cs.Replace(ctx, &Challenge{
			CommunityID: community,
			MemberID:    "m9",
			Mode:        ModeCode,
			Status:      StatusPending,
			SecretHash:  "778899",
			IssuedAt:    now.Add(time.Duration(i) * time.Minute),
			ExpiresAt:   now.Add(30 * time.Minute),
			MaxAttempts: 5,
		}))
	}
	mine, err := cs.ListPendingForMember(ctx, "m9")
	assert.NoError(err)
	if assert.Len(mine, 2) {
		assert.Equal("cB", mine[0].CommunityID)
		assert.Equal("cA", mine[1].CommunityID)
	}

	// terminal rows stay out of the member-wide listing
	mine, err = cs.ListPendingForMember(ctx, "m1")
	assert.NoError(err)
	assert.Empty(mine)
}

func TestMemChallengeStore(t *testing.T) {
	runChallengeStoreSuite(t, NewMemChallengeStore())
}

func TestGormChallengeStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	cs, err := NewGormChallengeStore(db)
	if err != nil {
		t.Fatal(err)
	}
	runChallengeStoreSuite(t, cs)
}
