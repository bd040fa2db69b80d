// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScheduler(t *testing.T) *DefaultScheduler {
	t.Helper()
	s, err := NewSchedulerFromConfig(Config{
		TickDuration:  10,
		TimeUnit:      "milliseconds",
		TicksPerWheel: 8,
	})
	require.NoError(t, err)
	return s
}

func TestSchedulerIDs(t *testing.T) {
	s := testScheduler(t)
	defer s.Shutdown()

	id1, err := s.Schedule(func() {}, 50*time.Millisecond)
	require.NoError(t, err)
	id2, err := s.Schedule(func() {}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "task-1", id1)
	assert.Equal(t, "task-2", id2)
}

func TestSchedulerValidation(t *testing.T) {
	s := testScheduler(t)
	defer s.Shutdown()

	_, err := s.Schedule(nil, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	_, err = s.Schedule(func() {}, 0)
	assert.ErrorIs(t, err, ErrInvalidDelay)
	_, err = s.ScheduleAtFixedRate(nil, 10*time.Millisecond, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	_, err = s.ScheduleAtFixedRate(func() {}, 0, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidDelay)
	_, err = s.ScheduleAtFixedRate(func() {}, 10*time.Millisecond, -time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidDelay)
}

func TestScheduleRunsOnce(t *testing.T) {
	s := testScheduler(t)
	defer s.Shutdown()

	var ran int32
	id, err := s.Schedule(func() { atomic.AddInt32(&ran, 1) },
		30*time.Millisecond)
	require.NoError(t, err)

	require.True(t, waitFor(2*time.Second, func() bool {
		return atomic.LoadInt32(&ran) == 1
	}), "task never ran")

	// the finished task removed itself from the id map
	require.True(t, waitFor(time.Second, func() bool {
		s.mu.Lock()
		_, ok := s.tasks[id]
		s.mu.Unlock()
		return !ok
	}), "finished task still mapped")
	assert.False(t, s.Cancel(id))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran), "one-shot task ran again")
}

func TestSchedulerCancel(t *testing.T) {
	s := testScheduler(t)
	defer s.Shutdown()

	var ran int32
	id, err := s.Schedule(func() { atomic.AddInt32(&ran, 1) },
		80*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id), "second cancel of the same id")
	assert.False(t, s.Cancel("task-999"), "cancel of an unknown id")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran), "cancelled task ran")
}

func TestScheduleAtFixedRate(t *testing.T) {
	s := testScheduler(t)
	defer s.Shutdown()

	var runs int32
	id, err := s.ScheduleAtFixedRate(func() { atomic.AddInt32(&runs, 1) },
		20*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)

	require.True(t, waitFor(3*time.Second, func() bool {
		return atomic.LoadInt32(&runs) >= 3
	}), "fixed-rate task did not repeat")

	require.True(t, s.Cancel(id))
	// one body may already be in flight when the cancel lands; after
	// that the id is unmapped and re-submission stops
	after := atomic.LoadInt32(&runs)
	time.Sleep(150 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&runs), after+1,
		"fixed-rate task kept running after cancel")
}

func TestSchedulerShutdown(t *testing.T) {
	s := testScheduler(t)

	var ran int32
	_, err := s.Schedule(func() { atomic.AddInt32(&ran, 1) },
		300*time.Millisecond)
	require.NoError(t, err)

	s.Shutdown()
	assert.False(t, s.timer.IsRunning())

	_, err = s.Schedule(func() {}, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimerShutDown)
	_, err = s.ScheduleAtFixedRate(func() {}, 10*time.Millisecond,
		10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimerShutDown)

	// pending tasks are dropped silently
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestNewSchedulerValidation(t *testing.T) {
	_, err := NewScheduler(nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewSchedulerFromConfig(Config{
		TickDuration:  0,
		TimeUnit:      "milliseconds",
		TicksPerWheel: 8,
	})
	assert.ErrorIs(t, err, ErrInvalidTickDuration)
}
