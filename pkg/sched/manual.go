package sched

import "time"

// Manual is a Scheduler whose timers only fire when told to. Tests use it
// to step timer-driven components deterministically.
type Manual struct {
	timers []*ManualTimer
}

var _ Scheduler = (*Manual)(nil)

// NewTimer creates a ManualTimer.
func (m *Manual) NewTimer(fn func()) Timer {
	t := &ManualTimer{fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Timers returns every timer created so far, in creation order.
func (m *Manual) Timers() []*ManualTimer {
	return m.timers
}

// ManualTimer records arming and fires on demand.
type ManualTimer struct {
	fn     func()
	active bool
	period time.Duration
	starts int
}

func (t *ManualTimer) Start(period time.Duration) {
	t.active = true
	t.period = period
	t.starts++
}

func (t *ManualTimer) Stop() {
	t.active = false
}

func (t *ManualTimer) Active() bool {
	return t.active
}

// Period returns the period of the last Start.
func (t *ManualTimer) Period() time.Duration {
	return t.period
}

// Starts returns how often Start was called.
func (t *ManualTimer) Starts() int {
	return t.starts
}

// Fire runs the callback n times while the timer stays active and returns
// the number of callbacks that ran.
func (t *ManualTimer) Fire(n int) int {
	fired := 0
	for i := 0; i < n && t.active; i++ {
		t.fn()
		fired++
	}
	return fired
}
