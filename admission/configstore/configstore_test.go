package configstore

import (
	"context"
	"testing"
	"time"

	"github.com/darklock-net/gatehouse/admission/cachestore"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig("c1")
	assert.Equal(ProfileStandard, cfg.Profile)
	assert.Equal(MethodAuto, cfg.VerificationMethod)
	assert.Equal(10*time.Minute, cfg.ChallengeTTL())
	assert.Equal(5, cfg.AttemptLimit())
	assert.False(cfg.AdvancedScanEnabled())
	assert.Equal(0, cfg.MinAccountAgeDays)
}

func TestAdvancedScanImplied(t *testing.T) {
	assert := assert.New(t)

	high := DefaultConfig("c1")
	high.Profile = ProfileHigh
	assert.True(high.AdvancedScanEnabled())

	ultra := DefaultConfig("c1")
	ultra.Profile = ProfileUltra
	assert.True(ultra.AdvancedScanEnabled())

	std := DefaultConfig("c1")
	std.EnableAdvancedScan = true
	assert.True(std.AdvancedScanEnabled())
}

func runConfigStoreSuite(t *testing.T, cs ConfigStore) {
	assert := assert.New(t)
	ctx := context.Background()

	// unknown community reads as defaults
	cfg, err := cs.Get(ctx, "c1")
	assert.NoError(err)
	assert.Equal(ProfileStandard, cfg.Profile)
	assert.Equal("c1", cfg.CommunityID)

	cfg.Profile = ProfileHigh
	cfg.RestrictedRoleID = "r-restricted"
	cfg.ChallengeTimeoutMinutes = 5
	assert.NoError(cs.Put(ctx, cfg))

	got, err := cs.Get(ctx, "c1")
	assert.NoError(err)
	assert.Equal(ProfileHigh, got.Profile)
	assert.Equal("r-restricted", got.RestrictedRoleID)
	assert.Equal(5*time.Minute, got.ChallengeTTL())

	// update round-trips
	got.Profile = ProfileUltra
	assert.NoError(cs.Put(ctx, got))
	again, err := cs.Get(ctx, "c1")
	assert.NoError(err)
	assert.Equal(ProfileUltra, again.Profile)
}

func TestMemConfigStore(t *testing.T) {
	runConfigStoreSuite(t, NewMemConfigStore())
}

func TestGormConfigStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	cs, err := NewGormConfigStore(db)
	if err != nil {
		t.Fatal(err)
	}
	runConfigStoreSuite(t, cs)
}

func TestCachedConfigStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := NewMemConfigStore()
	cached := NewCachedConfigStore(inner, cachestore.NewMemCacheStore(100, time.Minute), nil)
	runConfigStoreSuite(t, cached)

	// a cached read survives the inner store changing underneath it
	cfg, err := cached.Get(ctx, "c2")
	assert.NoError(err)
	assert.Equal(ProfileStandard, cfg.Profile)

	direct := DefaultConfig("c2")
	direct.Profile = ProfileHigh
	assert.NoError(inner.Put(ctx, direct))

	stale, err := cached.Get(ctx, "c2")
	assert.NoError(err)
	assert.Equal(ProfileStandard, stale.Profile)

	// writing through the cache purges it
	direct.Profile = ProfileUltra
	assert.NoError(cached.Put(ctx, direct))
	fresh, err := cached.Get(ctx, "c2")
	assert.NoError(err)
	assert.Equal(ProfileUltra, fresh.Profile)
}
