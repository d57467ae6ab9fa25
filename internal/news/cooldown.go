package news

import (
	"sync"
	"time"
)

// CooldownState remembers the last successful fetch per key. It lives for
// the process only.
type CooldownState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldownState creates an empty state.
func NewCooldownState() *CooldownState {
	return &CooldownState{last: make(map[string]time.Time)}
}

// Remaining returns how long key must still wait at now. Zero means go.
func (c *CooldownState) Remaining(key string, now time.Time, window time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[key]
	if !ok {
		return 0
	}
	if elapsed := now.Sub(last); elapsed < window {
		return window - elapsed
	}
	return 0
}

// Mark records a successful fetch of key at now.
func (c *CooldownState) Mark(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[key] = now
}

// Last returns the last successful fetch time of key.
func (c *CooldownState) Last(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[key]
	return t, ok
}
