// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventLoop_PostAndDrain(t *testing.T) {
	loop := NewEventLoop(4)
	defer loop.Close()

	var order []int
	for i := 1; i <= 3; i++ {
		require.True(t, loop.Post(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, loop.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, loop.Drain())
}

func TestEventLoop_Next(t *testing.T) {
	loop := NewEventLoop(1)
	defer loop.Close()

	go loop.Post(func() {})
	fn, ok := loop.Next(context.Background())
	require.True(t, ok)
	require.NotNil(t, fn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = loop.Next(ctx)
	assert.False(t, ok)
}

func TestEventLoop_CloseRejectsPosts(t *testing.T) {
	loop := NewEventLoop(1)
	loop.Close()
	loop.Close()

	assert.False(t, loop.Post(func() {}))
	_, ok := loop.Next(context.Background())
	assert.False(t, ok)
}

func TestTimerScheduler_CancelledAfterFireNeverRuns(t *testing.T) {
	loop := NewEventLoop(4)
	defer loop.Close()
	sched := NewScheduler(loop)

	ran := false
	cancel := sched.AfterFunc(time.Millisecond, func() { ran = true })

	// Wait until the timer has queued its task, then cancel before draining.
	fn, ok := loop.Next(context.Background())
	require.True(t, ok)
	cancel()
	fn()
	assert.False(t, ran)
}

func TestTimerScheduler_Runs(t *testing.T) {
	loop := NewEventLoop(4)
	defer loop.Close()
	sched := NewScheduler(loop)

	ran := false
	sched.AfterFunc(time.Millisecond, func() { ran = true })
	fn, ok := loop.Next(context.Background())
	require.True(t, ok)
	fn()
	assert.True(t, ran)
}

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.AfterFunc(300*time.Millisecond, func() { order = append(order, "b") })
	s.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	cancel := s.AfterFunc(200*time.Millisecond, func() { order = append(order, "x") })
	cancel()
	assert.Equal(t, 2, s.Pending())

	assert.Equal(t, 1, s.Advance(150*time.Millisecond))
	assert.Equal(t, []string{"a"}, order)

	s.AfterFunc(50*time.Millisecond, func() { order = append(order, "c") })
	assert.Equal(t, 2, s.Advance(time.Second))
	assert.Equal(t, []string{"a", "c", "b"}, order)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1150*time.Millisecond, s.Now())
}

func TestGoRunner_ContinuationOnLoop(t *testing.T) {
	loop := NewEventLoop(4)
	defer loop.Close()
	runner := NewRunner(loop)

	result := ""
	runner.Go(func() func() {
		value := "done"
		return func() { result = value }
	})
	runner.Go(func() func() { return nil })
	runner.Wait()

	assert.Equal(t, 1, loop.Drain())
	assert.Equal(t, "done", result)
}

func TestInlineRunner(t *testing.T) {
	var steps []string
	InlineRunner{}.Go(func() func() {
		steps = append(steps, "work")
		return func() { steps = append(steps, "next") }
	})
	assert.Equal(t, []string{"work", "next"}, steps)
}

func TestDebouncer(t *testing.T) {
	s := NewManualScheduler()
	d := newDebouncer(s)
	count := 0

	d.schedule("m1", 100*time.Millisecond, func() { count++ })
	d.schedule("m1", 100*time.Millisecond, func() { count++ })
	d.schedule("m2", 100*time.Millisecond, func() { count++ })
	assert.True(t, d.pending("m1"))
	d.cancel("m2")

	s.Advance(time.Second)
	assert.Equal(t, 1, count)
	assert.False(t, d.pending("m1"))
}
