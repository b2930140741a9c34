package alert

import (
	"sync"
	"time"
)

// MinCooldown is the lower bound applied to every cooldown.
const MinCooldown = 5 * time.Second

// Deduplicator keeps the per-key emission history for one sampling run. The history map
// and the last issue key are guarded by separate locks, and neither is held across I/O.
type Deduplicator struct {
	mu      sync.Mutex
	emitted map[string]time.Time

	lastMu  sync.Mutex
	lastKey string
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		emitted: make(map[string]time.Time),
	}
}

// ShouldEmit reports whether an alert for key may be emitted at now. On true the emission
// time is recorded in the same critical section, so concurrent callers with the same key
// cannot both pass.
func (d *Deduplicator) ShouldEmit(key string, now time.Time, cooldown time.Duration) bool {
	if cooldown < MinCooldown {
		cooldown = MinCooldown
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.emitted[key]; ok && now.Sub(prev) < cooldown {
		return false
	}
	d.emitted[key] = now
	return true
}

// Forget drops history entries older than maxAge.
func (d *Deduplicator) Forget(now time.Time, maxAge time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, t := range d.emitted {
		if now.Sub(t) >= maxAge {
			delete(d.emitted, k)
		}
	}
}

// Len returns the number of keys in the history.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.emitted)
}

// SameAsLast reports whether key equals the key of the previous detected issue.
func (d *Deduplicator) SameAsLast(key string) bool {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	return key != "" && d.lastKey == key
}

// SetLast records the key of the current tick's issue. An empty key clears it.
func (d *Deduplicator) SetLast(key string) {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	d.lastKey = key
}
