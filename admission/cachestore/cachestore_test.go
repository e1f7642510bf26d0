package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Minute)

	v, err := cs.Get(ctx, "config", "c1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Set(ctx, "config", "c1", `{"profile":"high"}`))
	v, err = cs.Get(ctx, "config", "c1")
	assert.NoError(err)
	assert.Equal(`{"profile":"high"}`, v)

	// scopes don't collide
	v, err = cs.Get(ctx, "other", "c1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Purge(ctx, "config", "c1"))
	v, err = cs.Get(ctx, "config", "c1")
	assert.NoError(err)
	assert.Equal("", v)
}

func TestMemCacheStoreEviction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(2, time.Minute)
	assert.NoError(cs.Set(ctx, "config", "c1", "one"))
	assert.NoError(cs.Set(ctx, "config", "c2", "two"))
	assert.NoError(cs.Set(ctx, "config", "c3", "three"))

	v, err := cs.Get(ctx, "config", "c1")
	assert.NoError(err)
	assert.Equal("", v)
	v, err = cs.Get(ctx, "config", "c3")
	assert.NoError(err)
	assert.Equal("three", v)
}
