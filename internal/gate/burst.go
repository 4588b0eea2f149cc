package gate

import (
	"sync"
	"time"
)

const (
	// burstWindow is the sliding window for short-term rate limiting.
	burstWindow = 60 * time.Second
	// burstCleanupInterval is how often idle credential entries are dropped.
	burstCleanupInterval = 10 * time.Minute
	// burstIdleTimeout is how long a credential may be idle before its
	// window state is discarded.
	burstIdleTimeout = 10 * time.Minute
)

// Burst enforces a per-credential sliding-window request limit, independent
// of the daily quota. It catches callers that stay under their daily limit
// but hammer the API in short spikes.
type Burst struct {
	limitPerMinute int
	entries        map[string]*burstEntry
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
	now            func() time.Time
}

type burstEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// NewBurst creates a burst limiter allowing limitPerMinute requests per
// credential in any 60 second window, and starts its background cleanup.
func NewBurst(limitPerMinute int) *Burst {
	b := &Burst{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*burstEntry),
		stopCleanup:    make(chan struct{}),
		now:            time.Now,
	}

	go b.cleanupLoop()

	return b
}

// Stop stops the background cleanup goroutine.
func (b *Burst) Stop() {
	close(b.stopCleanup)
}

// Allow reports whether a request for the credential fits in the current
// window, and records it if so.
func (b *Burst) Allow(credentialKey string) bool {
	now := b.now()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	entry, exists := b.entries[credentialKey]
	if !exists {
		entry = &burstEntry{
			timestamps: make([]time.Time, 0, b.limitPerMinute+1),
		}
		b.entries[credentialKey] = entry
	}
	entry.lastSeen = now

	// Drop timestamps that slid out of the window, reusing the backing array.
	windowStart := now.Add(-burstWindow)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= b.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// ActiveCredentials returns how many credentials currently hold window state.
func (b *Burst) ActiveCredentials() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.entries)
}

func (b *Burst) cleanupLoop() {
	ticker := time.NewTicker(burstCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cleanup()
		case <-b.stopCleanup:
			return
		}
	}
}

func (b *Burst) cleanup() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	cutoff := b.now().Add(-burstIdleTimeout)
	for key, entry := range b.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(b.entries, key)
		}
	}
}
