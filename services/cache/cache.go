package cache

import (
	"strconv"
	"time"
)

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// Blocker keeps a per-source "do not fetch" marker after the source has
// rate limited us. A nil Blocker or one without a cache never blocks.
type Blocker struct {
	Cache    CacheService
	Duration time.Duration
}

// NewBlocker returns a Blocker, or nil when svc is nil
func NewBlocker(svc CacheService, duration time.Duration) *Blocker {
	if svc == nil {
		return nil
	}
	return &Blocker{Cache: svc, Duration: duration}
}

// Blocked reports whether key is currently blocked
func (b *Blocker) Blocked(key string) bool {
	if b == nil || b.Cache == nil || key == "" {
		return false
	}
	_, err := b.Cache.Get(key)
	return err == nil
}

// Block marks key as blocked for the configured duration
func (b *Blocker) Block(key string) error {
	if b == nil || b.Cache == nil || key == "" {
		return nil
	}
	seconds := strconv.Itoa(int(b.Duration / time.Second))
	return b.Cache.Set(key, []byte(seconds), b.Duration)
}
