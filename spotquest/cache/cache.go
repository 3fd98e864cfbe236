// Package cache provides the injected key-value cache the leaderboard
// reads through. Implementations carry explicit TTLs and an explicit
// Invalidate; nothing here is a process-wide singleton.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get returns the cached bytes for key and whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl stores the
	// value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate drops the given keys. Missing keys are not an error.
	Invalidate(ctx context.Context, keys ...string) error
}
