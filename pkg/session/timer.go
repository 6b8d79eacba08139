package session

import (
	"github.com/go-go-golems/parley/pkg/persistence/sessionstore"
)

// Timer is the per-question countdown. It is pure bookkeeping: the runtime
// owns the tick loop and calls Tick once per elapsed second. Remaining
// never goes below zero, and reaching zero does not deactivate the timer;
// expiry handling is the runtime's job so that a restored snapshot with an
// already-expired countdown still triggers it exactly once.
type Timer struct {
	active       bool
	remaining    int
	limitMinutes int
}

// Start arms the countdown for a question with the given answer allowance.
func (t *Timer) Start(limitMinutes int) {
	if limitMinutes <= 0 {
		t.Stop()
		return
	}
	t.active = true
	t.limitMinutes = limitMinutes
	t.remaining = limitMinutes * 60
}

// Resume re-arms the countdown at a persisted remainder instead of the full
// allowance.
func (t *Timer) Resume(remainingSeconds, limitMinutes int) {
	t.active = true
	t.limitMinutes = limitMinutes
	t.remaining = remainingSeconds
	if t.remaining < 0 {
		t.remaining = 0
	}
}

// Stop disarms the countdown.
func (t *Timer) Stop() {
	t.active = false
	t.remaining = 0
	t.limitMinutes = 0
}

// Tick consumes one second. It reports whether the countdown just reached
// zero on this tick.
func (t *Timer) Tick() bool {
	if !t.active || t.remaining <= 0 {
		return false
	}
	t.remaining--
	return t.remaining == 0
}

// Active reports whether the countdown is armed. A timer that has reached
// zero stays active until the runtime handles expiry.
func (t *Timer) Active() bool { return t.active }

// Remaining returns the seconds left on the countdown.
func (t *Timer) Remaining() int { return t.remaining }

// Expired reports an armed countdown at zero.
func (t *Timer) Expired() bool { return t.active && t.remaining <= 0 }

// State returns the persistable timer state.
func (t *Timer) State() sessionstore.TimerState {
	return sessionstore.TimerState{
		IsActive:         t.active,
		RemainingSeconds: t.remaining,
		LimitMinutes:     t.limitMinutes,
	}
}
