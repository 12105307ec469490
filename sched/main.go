// Package sched runs delayed and repeating callbacks on a single goroutine against a virtual clock.
//
// Nothing here blocks: a caller advances the clock (from a real ticker or a test) and every callback due up to the new time runs in order.
package sched

import (
	"container/heap"
	"time"
)

// Task is a handle to a scheduled callback.
// The zero value and nil are valid, already-cancelled tasks.
type Task struct {
	at        time.Duration
	interval  time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	index     int
}

// Cancel stops the task from running again. It is safe to call more than once, and on nil.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
}

// Active reports whether the task will still run.
func (t *Task) Active() bool {
	return t != nil && !t.cancelled && t.fn != nil
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	t.index = -1
	return t
}

// Scheduler is not safe for concurrent use; all callbacks run on the goroutine calling Advance.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	tasks taskHeap
	// FixedStep is the interval used by EveryFixed.
	FixedStep time.Duration
}

// New returns a scheduler at time zero whose fixed step is fixedStep.
func New(fixedStep time.Duration) *Scheduler {
	return &Scheduler{FixedStep: fixedStep}
}

// Now returns the virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

func (s *Scheduler) push(delay, interval time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	t := &Task{at: s.now + delay, interval: interval, seq: s.seq, fn: fn}
	heap.Push(&s.tasks, t)
	return t
}

// After runs fn once after delay. A zero delay runs fn on the next Advance (even Advance(0)).
func (s *Scheduler) After(delay time.Duration, fn func()) *Task {
	return s.push(delay, 0, fn)
}

// Every runs fn after initial and then every interval until cancelled.
func (s *Scheduler) Every(initial, interval time.Duration, fn func()) *Task {
	if interval <= 0 {
		panic("sched: non-positive interval")
	}
	return s.push(initial, interval, fn)
}

// EveryFixed runs fn every FixedStep, starting one step from now.
func (s *Scheduler) EveryFixed(fn func()) *Task {
	return s.Every(s.FixedStep, s.FixedStep, fn)
}

// Pending returns the number of tasks still queued (including cancelled ones not yet dropped).
func (s *Scheduler) Pending() int { return len(s.tasks) }

// Advance moves the clock forward by d, running every task due on the way in time order.
// Tasks scheduled by callbacks run in the same Advance if they fall due before the new time.
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now + d
	for len(s.tasks) > 0 && s.tasks[0].at <= target {
		t := heap.Pop(&s.tasks).(*Task)
		if t.cancelled {
			continue
		}
		s.now = t.at
		if t.interval > 0 {
			t.at += t.interval
			s.seq++
			t.seq = s.seq
			heap.Push(&s.tasks, t)
		} else {
			t.cancelled = true
		}
		t.fn()
	}
	s.now = target
}
