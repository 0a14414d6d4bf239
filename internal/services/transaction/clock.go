package transaction

import (
	"sync"
	"time"
)

// clock produces ledger timestamps that never decrease within one engine
// instance, even if the wall clock steps backwards.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}
