package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActionCooldown(t *testing.T) {
	assert := assert.New(t)
	rl := NewActionCooldown(time.Minute)

	assert.False(rl.Throttled("c1", "m1", "verify_click"))
	assert.True(rl.Throttled("c1", "m1", "verify_click"))

	// independent per action and per pair
	assert.False(rl.Throttled("c1", "m1", "review_decision"))
	assert.False(rl.Throttled("c1", "m2", "verify_click"))
	assert.False(rl.Throttled("c2", "m1", "verify_click"))
}

func TestActionCooldownExpires(t *testing.T) {
	assert := assert.New(t)
	rl := NewActionCooldown(30 * time.Millisecond)

	assert.False(rl.Throttled("c1", "m1", "verify_click"))
	assert.True(rl.Throttled("c1", "m1", "verify_click"))

	time.Sleep(70 * time.Millisecond)
	assert.False(rl.Throttled("c1", "m1", "verify_click"))
}
