package arena

import (
	"container/heap"
	"time"
)

// Clock selects which time base a timer runs on
type Clock uint8

const (
	// GameClock is scaled by the pause state
	GameClock Clock = iota
	// RealClock keeps running while the game is paused
	RealClock
)

// Timer is a pending callback registered on the Scheduler
type Timer struct {
	due     time.Duration
	order   uint64
	clock   Clock
	owner   EntityID
	fn      func()
	index   int
	stopped bool
	fired   bool
}

// Stop cancels the timer. It reports whether the call prevented the
// callback from running.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending reports whether the timer has neither fired nor been stopped
func (t *Timer) Pending() bool {
	return t != nil && !t.stopped && !t.fired
}

// Scheduler runs timed continuations against the simulation clocks.
// Callbacks run synchronously inside Advance, never on another goroutine.
type Scheduler struct {
	now    [2]time.Duration
	queues [2]timerQueue
	seq    uint64
}

// NewScheduler creates an empty scheduler at time zero
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current time of a clock
func (s *Scheduler) Now(c Clock) time.Duration {
	return s.now[c]
}

// After registers fn to run once d has elapsed on clock c
func (s *Scheduler) After(c Clock, d time.Duration, fn func()) *Timer {
	return s.AfterFor(0, c, d, fn)
}

// AfterFor is After with an owning entity; CancelOwner stops it when that
// entity is removed.
func (s *Scheduler) AfterFor(owner EntityID, c Clock, d time.Duration, fn func()) *Timer {
	s.seq++
	t := &Timer{
		due:   s.now[c] + d,
		order: s.seq,
		clock: c,
		owner: owner,
		fn:    fn,
	}
	heap.Push(&s.queues[c], t)
	return t
}

// Advance moves clock c forward by d and runs every timer that came due,
// in due order. Timers scheduled by callbacks run in the same call if they
// also fall inside the window.
func (s *Scheduler) Advance(c Clock, d time.Duration) {
	target := s.now[c] + d
	q := &s.queues[c]
	for q.Len() > 0 {
		next := (*q)[0]
		if next.due > target {
			break
		}
		heap.Pop(q)
		if next.stopped {
			continue
		}
		if next.due > s.now[c] {
			s.now[c] = next.due
		}
		next.fired = true
		next.fn()
	}
	s.now[c] = target
}

// CancelOwner stops every pending timer owned by id
func (s *Scheduler) CancelOwner(id EntityID) int {
	n := 0
	for c := range s.queues {
		for _, t := range s.queues[c] {
			if t.owner == id && t.Stop() {
				n++
			}
		}
	}
	return n
}

// CancelAll stops every pending timer on both clocks
func (s *Scheduler) CancelAll() {
	for c := range s.queues {
		for _, t := range s.queues[c] {
			t.Stop()
		}
		s.queues[c] = s.queues[c][:0]
	}
}

// Pending returns the number of timers that will still fire
func (s *Scheduler) Pending() int {
	n := 0
	for c := range s.queues {
		for _, t := range s.queues[c] {
			if t.Pending() {
				n++
			}
		}
	}
	return n
}

// timerQueue is a min-heap ordered by due time then registration order
type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].order < q[j].order
	}
	return q[i].due < q[j].due
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
