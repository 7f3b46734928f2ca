package app

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestQuestionTimerExpiresExactlyOnce(t *testing.T) {
	timer := newQuestionTimer(3, time.Millisecond)

	var ticks, expiries atomic.Int32
	done := make(chan struct{})
	timer.Start(
		func(remaining int) { ticks.Add(1) },
		func() {
			expiries.Add(1)
			close(done)
		},
	)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never expired")
	}
	// Give a stray second expiry a chance to fire.
	time.Sleep(20 * time.Millisecond)

	if got := expiries.Load(); got != 1 {
		t.Fatalf("expected exactly one expiry, got %d", got)
	}
	if got := ticks.Load(); got != 2 {
		t.Fatalf("expected 2 ticks before expiry for a 3s budget, got %d", got)
	}
}

func TestQuestionTimerStopIsIdempotentAndSilent(t *testing.T) {
	timer := newQuestionTimer(2, 5*time.Millisecond)

	var expiries atomic.Int32
	timer.Start(nil, func() { expiries.Add(1) })
	timer.Stop()
	timer.Stop() // stopping an already-stopped timer is a no-op

	time.Sleep(50 * time.Millisecond)
	if got := expiries.Load(); got != 0 {
		t.Fatalf("stopped timer must not expire, got %d expiries", got)
	}
}

func TestQuestionTimerRestartSupersedesPrevious(t *testing.T) {
	timer := newQuestionTimer(2, time.Millisecond)

	var first, second atomic.Int32
	done := make(chan struct{})
	timer.Start(nil, func() { first.Add(1) })
	timer.Start(nil, func() {
		second.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("restarted timer never expired")
	}
	time.Sleep(20 * time.Millisecond)

	if first.Load() != 0 {
		t.Fatalf("superseded countdown must not fire")
	}
	if second.Load() != 1 {
		t.Fatalf("expected one expiry from the live countdown, got %d", second.Load())
	}
}

func TestSessionTimerElapsedIsRecomputed(t *testing.T) {
	current := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	timer := newSessionTimer(clock)

	if timer.Elapsed() != 0 {
		t.Fatalf("idle timer must report 0")
	}

	timer.Start()
	current = current.Add(65 * time.Second)
	if got := timer.Elapsed(); got != 65 {
		t.Fatalf("expected 65s elapsed, got %d", got)
	}

	// Starting again must not reset the start instant.
	timer.Start()
	if got := timer.Elapsed(); got != 65 {
		t.Fatalf("restart must not drift, got %d", got)
	}

	timer.Stop()
	current = current.Add(time.Hour)
	if got := timer.Elapsed(); got != 65 {
		t.Fatalf("stopped timer must freeze, got %d", got)
	}
	timer.Stop() // idempotent

	timer.Reset()
	if timer.Elapsed() != 0 || !timer.StartedAt().IsZero() {
		t.Fatalf("reset must return timer to idle")
	}
}

func TestSessionTimerResumesFromInstant(t *testing.T) {
	current := time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC)
	timer := newSessionTimer(func() time.Time { return current })

	timer.StartAt(current.Add(-30 * time.Second))
	if got := timer.Elapsed(); got != 30 {
		t.Fatalf("expected resumed elapsed 30s, got %d", got)
	}
}
