package app

import (
	"sync"
	"time"
)

// questionTimer runs the per-question countdown. At most one countdown is
// live: Start always stops the previous run first, and Stop is an idempotent
// no-op when nothing is running. Expiry fires the handler exactly once.
type questionTimer struct {
	budget   int
	interval time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

func newQuestionTimer(budgetSeconds int, interval time.Duration) *questionTimer {
	return &questionTimer{budget: budgetSeconds, interval: interval}
}

// Start resets the remaining time to the full budget and begins counting down.
// onTick receives the remaining seconds after each interval; onExpire fires
// when the budget is exhausted.
func (t *questionTimer) Start(onTick func(remaining int), onExpire func()) {
	t.Stop()

	t.mu.Lock()
	cancel := make(chan struct{})
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(cancel, onTick, onExpire)
}

// Stop halts the countdown without firing the expiry handler. Safe to call
// repeatedly and from timer callbacks.
func (t *questionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

func (t *questionTimer) run(cancel chan struct{}, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	remaining := t.budget
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			remaining--
			if remaining > 0 {
				if onTick != nil {
					onTick(remaining)
				}
				continue
			}
			onExpire()
			return
		}
	}
}

// sessionTimer tracks the overall attempt duration from a single start
// instant. Elapsed is recomputed from the clock on every call rather than
// accumulated, so display pauses never drift.
type sessionTimer struct {
	now func() time.Time

	mu        sync.Mutex
	startedAt time.Time
	stoppedAt time.Time
}

func newSessionTimer(now func() time.Time) *sessionTimer {
	return &sessionTimer{now: now}
}

// Start records the start instant. Calling it again on a running timer is a
// no-op so a resumed display cannot reset the clock.
func (t *sessionTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		t.startedAt = t.now()
	}
}

// StartAt resumes the timer from a persisted start instant.
func (t *sessionTimer) StartAt(start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = start
	t.stoppedAt = time.Time{}
}

// Stop freezes the elapsed value. Idempotent.
func (t *sessionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.startedAt.IsZero() && t.stoppedAt.IsZero() {
		t.stoppedAt = t.now()
	}
}

// Reset returns the timer to idle.
func (t *sessionTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = time.Time{}
	t.stoppedAt = time.Time{}
}

// Elapsed returns whole seconds since start, frozen once stopped.
func (t *sessionTimer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		return 0
	}
	end := t.stoppedAt
	if end.IsZero() {
		end = t.now()
	}
	return int(end.Sub(t.startedAt) / time.Second)
}

// StartedAt returns the start instant, zero when idle.
func (t *sessionTimer) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}
