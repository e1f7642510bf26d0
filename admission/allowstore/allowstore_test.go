package allowstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func runAllowStoreSuite(t *testing.T, as AllowStore) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ok, err := as.IsAllowed(ctx, "c1", "m1", nil, now)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(as.Add(ctx, &AllowEntry{CommunityID: "c1", SubjectID: "m1", SubjectKind: SubjectMember, Note: "partner bot"}))
	ok, err = as.IsAllowed(ctx, "c1", "m1", nil, now)
	assert.NoError(err)
	assert.True(ok)

	// scoped to the community
	ok, err = as.IsAllowed(ctx, "c2", "m1", nil, now)
	assert.NoError(err)
	assert.False(ok)

	// role entries match any held role
	assert.NoError(as.Add(ctx, &AllowEntry{CommunityID: "c1", SubjectID: "r9", SubjectKind: SubjectRole}))
	ok, err = as.IsAllowed(ctx, "c1", "m2", []string{"r1", "r9"}, now)
	assert.NoError(err)
	assert.True(ok)
	ok, err = as.IsAllowed(ctx, "c1", "m2", []string{"r1"}, now)
	assert.NoError(err)
	assert.False(ok)

	// expired entries don't count
	past := now.Add(-time.Hour)
	assert.NoError(as.Add(ctx, &AllowEntry{CommunityID: "c1", SubjectID: "m3", SubjectKind: SubjectMember, ExpiresAt: &past}))
	ok, err = as.IsAllowed(ctx, "c1", "m3", nil, now)
	assert.NoError(err)
	assert.False(ok)

	future := now.Add(time.Hour)
	assert.NoError(as.Add(ctx, &AllowEntry{CommunityID: "c1", SubjectID: "m4", SubjectKind: SubjectMember, ExpiresAt: &future}))
	ok, err = as.IsAllowed(ctx, "c1", "m4", nil, now)
	assert.NoError(err)
	assert.True(ok)

	assert.NoError(as.Remove(ctx, "c1", "m1", SubjectMember))
	ok, err = as.IsAllowed(ctx, "c1", "m1", nil, now)
	assert.NoError(err)
	assert.False(ok)
}

func TestMemAllowStore(t *testing.T) {
	runAllowStoreSuite(t, NewMemAllowStore())
}

func TestGormAllowStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	as, err := NewGormAllowStore(db)
	if err != nil {
		t.Fatal(err)
	}
	runAllowStoreSuite(t, as)
}
