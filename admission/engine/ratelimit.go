package engine

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultActionCooldown is the gap enforced between repeated interactive
// actions by the same member, mainly double-clicked buttons.
const DefaultActionCooldown = 10 * time.Second

const actionCacheSize = 1024

// ActionCooldown drops rapid duplicate interactive actions. Process-local;
// after a restart the first duplicate slips through, harmlessly.
type ActionCooldown struct {
	entries *expirable.LRU[string, struct{}]
}

func NewActionCooldown(ttl time.Duration) *ActionCooldown {
	if ttl <= 0 {
		ttl = DefaultActionCooldown
	}
	return &ActionCooldown{
		entries: expirable.NewLRU[string, struct{}](actionCacheSize, nil, ttl),
	}
}

// Throttled reports whether the pair ran this action inside the cooldown
// window, and starts the window on the first call.
func (rl *ActionCooldown) Throttled(communityID, memberID, action string) bool {
	key := communityID + "/" + memberID + "/" + action
	if _, ok := rl.entries.Get(key); ok {
		return true
	}
	rl.entries.Add(key, struct{}{})
	return false
}
