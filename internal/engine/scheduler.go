package engine

import "time"

// Scheduler owns the battle core's delayed transitions (enemy-turn delay,
// stage advance, matchmaking and disconnect timers). Modeling them as
// explicit cancellable events keeps the state machines deterministic under
// test: production uses the time.AfterFunc-backed implementation, tests use
// a manual scheduler that fires on demand.
type Scheduler interface {
	// After runs fn once d has elapsed and returns a cancel func. Cancel is
	// safe to call more than once and after the event fired.
	After(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

// NewScheduler returns the production Scheduler backed by time.AfterFunc.
func NewScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualScheduler is a test scheduler that collects scheduled events and
// fires them only when asked.
type ManualScheduler struct {
	pending []*manualEvent
}

type manualEvent struct {
	d        time.Duration
	fn       func()
	canceled bool
}

// NewManualScheduler returns an empty manual scheduler.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

func (s *ManualScheduler) After(d time.Duration, fn func()) func() {
	ev := &manualEvent{d: d, fn: fn}
	s.pending = append(s.pending, ev)
	return func() { ev.canceled = true }
}

// FireNext runs the oldest pending non-canceled event. It returns false when
// nothing was fired.
func (s *ManualScheduler) FireNext() bool {
	for i, ev := range s.pending {
		if ev.canceled {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		ev.fn()
		return true
	}
	return false
}

// FireAll drains every pending event in order, including events scheduled by
// the events themselves.
func (s *ManualScheduler) FireAll() {
	for s.FireNext() {
	}
}

// PendingCount returns the number of armed (non-canceled) events.
func (s *ManualScheduler) PendingCount() int {
	n := 0
	for _, ev := range s.pending {
		if !ev.canceled {
			n++
		}
	}
	return n
}
