// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatcher hands a function to the event thread.
type Dispatcher interface {
	// Post queues fn. It reports false once the dispatcher is closed.
	Post(fn func()) bool
}

// InlineDispatcher runs functions immediately on the calling goroutine.
type InlineDispatcher struct{}

// Post runs fn.
func (InlineDispatcher) Post(fn func()) bool {
	fn()
	return true
}

// EventLoop is a queue of functions drained by a single thread. In the TUI
// the Bubble Tea update loop drains it through a command that waits on Next.
type EventLoop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewEventLoop creates a loop with the given queue capacity.
func NewEventLoop(size int) *EventLoop {
	if size <= 0 {
		size = 256
	}
	return &EventLoop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues fn, blocking while the queue is full. It must not be called
// from the draining thread.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Next waits for the next queued function.
func (l *EventLoop) Next(ctx context.Context) (func(), bool) {
	select {
	case fn := <-l.queue:
		return fn, true
	case <-l.done:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Drain runs every queued function without waiting and returns the count.
func (l *EventLoop) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.queue:
			fn()
			n++
		default:
			return n
		}
	}
}

// Close stops the loop. Queued functions are dropped.
func (l *EventLoop) Close() {
	l.once.Do(func() { close(l.done) })
}

// =============================================================================
// SCHEDULING
// =============================================================================

// Scheduler runs fn on the event thread after a delay. The returned cancel
// must be called on the event thread; a cancelled task never runs, even if
// its timer already fired.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// NewScheduler returns a timer-backed scheduler that posts through d.
func NewScheduler(d Dispatcher) Scheduler {
	return &timerScheduler{dispatcher: d}
}

type timerScheduler struct {
	dispatcher Dispatcher
}

func (s *timerScheduler) AfterFunc(d time.Duration, fn func()) func() {
	// Written and read only on the event thread.
	cancelled := false
	t := time.AfterFunc(d, func() {
		s.dispatcher.Post(func() {
			if !cancelled {
				fn()
			}
		})
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}

// ManualScheduler holds tasks until the clock is advanced. It runs tasks on
// the caller's goroutine. Headless views and tests use it.
type ManualScheduler struct {
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManualScheduler creates a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc queues fn to run once the clock passes d from now.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	s.seq++
	t := &manualTask{due: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

// Advance moves the clock forward and runs every task that came due, in due
// order. Tasks scheduled while advancing run if they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) int {
	target := s.now + d
	ran := 0
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		s.now = t.due
		if !t.cancelled {
			t.fn()
			ran++
		}
	}
	s.now = target
	return ran
}

// Pending returns the number of live tasks.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Now returns the scheduler clock.
func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].due != s.tasks[j].due {
			return s.tasks[i].due < s.tasks[j].due
		}
		return s.tasks[i].seq < s.tasks[j].seq
	})
	if len(s.tasks) == 0 || s.tasks[0].due > target {
		return nil
	}
	t := s.tasks[0]
	s.tasks = s.tasks[1:]
	return t
}

// =============================================================================
// BACKGROUND WORK
// =============================================================================

// Runner runs blocking work off the event thread. The continuation returned
// by work, if any, runs on the event thread.
type Runner interface {
	Go(work func() func())
}

// InlineRunner runs work and its continuation on the caller's goroutine.
type InlineRunner struct{}

// Go runs work, then its continuation.
func (InlineRunner) Go(work func() func()) {
	if next := work(); next != nil {
		next()
	}
}

// GoRunner runs work on goroutines and posts continuations through a
// Dispatcher.
type GoRunner struct {
	dispatcher Dispatcher
	wg         sync.WaitGroup
}

// NewRunner creates a GoRunner.
func NewRunner(d Dispatcher) *GoRunner {
	return &GoRunner{dispatcher: d}
}

// Go starts work on a new goroutine.
func (r *GoRunner) Go(work func() func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if next := work(); next != nil {
			r.dispatcher.Post(next)
		}
	}()
}

// Wait blocks until all started work has returned.
func (r *GoRunner) Wait() {
	r.wg.Wait()
}
