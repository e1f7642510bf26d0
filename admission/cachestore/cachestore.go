// Package cachestore is a small string cache in front of hot admission
// reads, mainly per-community configuration.
//
// Values are serialized JSON; an empty string marks a miss (no stored value
// is ever the empty string). The mem implementation is a bounded expirable
// LRU; the redis implementation adds a shared tier so a fleet of instances
// sees config updates within one TTL.
package cachestore

import (
	"context"
)

type CacheStore interface {
	// Get returns the cached value, or "" on a miss.
	Get(ctx context.Context, scope, key string) (string, error)
	Set(ctx context.Context, scope, key string, val string) error
	Purge(ctx context.Context, scope, key string) error
}
