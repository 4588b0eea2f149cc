package gate

import (
	"testing"
	"time"
)

func newTestBurst(t *testing.T, limit int, at time.Time) (*Burst, *time.Time) {
	t.Helper()
	b := NewBurst(limit)
	t.Cleanup(b.Stop)
	clock := at
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBurst_AllowsUpToLimit(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, _ := newTestBurst(t, 3, base)

	for i := 0; i < 3; i++ {
		if !b.Allow("k") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if b.Allow("k") {
		t.Error("request over the limit should be blocked")
	}
}

func TestBurst_WindowSlides(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, clock := newTestBurst(t, 2, base)

	b.Allow("k")
	b.Allow("k")
	if b.Allow("k") {
		t.Fatal("third request inside the window should be blocked")
	}

	*clock = base.Add(61 * time.Second)
	if !b.Allow("k") {
		t.Error("requests should be allowed again once the window slides past")
	}
}

func TestBurst_KeysAreIndependent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, _ := newTestBurst(t, 1, base)

	if !b.Allow("k1") {
		t.Fatal("first key should be allowed")
	}
	if !b.Allow("k2") {
		t.Error("a second key must not be affected by the first key's usage")
	}
	if b.Allow("k1") {
		t.Error("first key should now be blocked")
	}
}

func TestBurst_CleanupDropsIdleEntries(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, clock := newTestBurst(t, 5, base)

	b.Allow("idle")
	*clock = base.Add(5 * time.Minute)
	b.Allow("fresh")

	*clock = base.Add(11 * time.Minute)
	b.cleanup()

	if got := b.ActiveCredentials(); got != 1 {
		t.Errorf("ActiveCredentials() = %d after cleanup, want 1", got)
	}
}
