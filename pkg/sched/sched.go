// Package sched provides periodic timers that fire on a single cooperative
// goroutine.
package sched

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when posting to a loop that was stopped.
var ErrStopped = errors.New("loop stopped")

// Timer is a periodic timer. Start, Stop and Active must be called from the
// goroutine that runs the timer callbacks.
type Timer interface {
	// Start arms the timer with period, replacing any previous arming.
	Start(period time.Duration)
	// Stop disarms the timer. No callback runs after Stop returns.
	Stop()
	// Active reports whether the timer is armed.
	Active() bool
}

// Scheduler creates timers.
type Scheduler interface {
	NewTimer(fn func()) Timer
}

// Loop is a task queue drained by one goroutine. Timers created by the loop
// deliver their ticks as tasks.
type Loop struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

var _ Scheduler = (*Loop)(nil)

// NewLoop returns a loop whose queue holds buffer pending tasks.
func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		quit:  make(chan struct{}),
	}
}

// Tasks exposes the queue so an owner can select on it alongside other
// channels instead of calling Run.
func (l *Loop) Tasks() <-chan func() {
	return l.tasks
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.quit:
		return ErrStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

// Call queues fn and waits until it ran.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Stop makes Run return and rejects further posts.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
}

// Done is closed once Stop was called.
func (l *Loop) Done() <-chan struct{} {
	return l.quit
}

// NewTimer returns a timer whose callback runs on the loop goroutine.
func (l *Loop) NewTimer(fn func()) Timer {
	return &loopTimer{loop: l, fn: fn}
}

// loopTimer posts ticks into its loop. Every tick carries the generation it
// was armed with; Stop and Start bump the generation so ticks already queued
// are dropped when they reach the front.
type loopTimer struct {
	loop   *Loop
	fn     func()
	gen    uint64
	active bool
	stop   chan struct{}
}

func (t *loopTimer) Start(period time.Duration) {
	t.Stop()
	if period <= 0 {
		period = time.Millisecond
	}

	t.gen++
	t.active = true
	t.stop = make(chan struct{})
	go t.tick(period, t.gen, t.stop)
}

func (t *loopTimer) Stop() {
	if !t.active {
		return
	}
	t.active = false
	t.gen++
	close(t.stop)
}

func (t *loopTimer) Active() bool {
	return t.active
}

func (t *loopTimer) tick(period time.Duration, gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	fire := func() {
		if t.active && t.gen == gen {
			t.fn()
		}
	}

	for {
		select {
		case <-stop:
			return
		case <-t.loop.quit:
			return
		case <-ticker.C:
			select {
			case t.loop.tasks <- fire:
			case <-stop:
				return
			case <-t.loop.quit:
				return
			}
		}
	}
}
