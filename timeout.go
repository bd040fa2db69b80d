// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"sync/atomic"
)

// State is the lifecycle state of a Timeout.
// A timeout starts as StateNew and makes exactly one terminal
// transition: to StateCancelled (won by a Cancel() caller) or to
// StateExpired (won by the worker). The two transitions are mutually
// exclusive; at most one ever succeeds.
type State int32

const (
	StateNew State = iota
	StateCancelled
	StateExpired
)

// String returns the state name, for logging.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateCancelled:
		return "cancelled"
	case StateExpired:
		return "expired"
	}
	return "invalid"
}

// A Timeout is the handle returned for a submitted timer task.
// It is shared between the submitter (which may only Cancel() it and
// read its state) and the timer's worker goroutine, which exclusively
// owns the list links, the bucket back-reference and the rounds
// counter.
type Timeout struct {
	next *Timeout
	prev *Timeout

	timer *HashedWheelTimer
	task  TimerTask

	// deadline is the expire time as a nanosecond offset from the
	// timer's start instant. Immutable after construction.
	deadline int64

	state int32 // atomic, CAS only

	// remainingRounds is the number of full wheel revolutions that must
	// still elapse before the timeout is due. Worker only.
	remainingRounds int64

	// bucket is the wheel slot currently holding this timeout, or nil.
	// Worker only.
	bucket *bucket
}

// Deadline returns the expire time as a nanosecond offset from the
// timer's start instant.
func (t *Timeout) Deadline() int64 {
	return t.deadline
}

// State returns the current timeout state.
func (t *Timeout) State() State {
	return State(atomic.LoadInt32(&t.state))
}

// IsCancelled returns true if the timeout was cancelled before it
// expired.
func (t *Timeout) IsCancelled() bool {
	return t.State() == StateCancelled
}

// IsExpired returns true if the timeout expired (its task ran or is
// running).
func (t *Timeout) IsExpired() bool {
	return t.State() == StateExpired
}

// Cancel tries to cancel the timeout. It returns true if the
// cancellation won (the task will never run) and false if the timeout
// already expired or was already cancelled.
// Cancel never touches the wheel itself: a winning cancel enqueues the
// handle on the cancellation queue and the worker unlinks it from its
// bucket within the next tick.
// It is safe to call from any goroutine, any number of times,
// concurrently with the worker's expiration attempt; at most one of the
// two succeeds.
func (t *Timeout) Cancel() bool {
	if !atomic.CompareAndSwapInt32(&t.state,
		int32(StateNew), int32(StateCancelled)) {
		return false
	}
	// the worker drops the bucket reference on its next cancellation
	// drain; until then the handle may still sit on a bucket list
	t.timer.cancelled.push(t)
	return true
}

// expire transitions the timeout to StateExpired and runs its task.
// If the CAS loses (a Cancel() won first) it does nothing.
// Worker only.
func (t *Timeout) expire() {
	if !atomic.CompareAndSwapInt32(&t.state,
		int32(StateNew), int32(StateExpired)) {
		return
	}
	t.run()
}

// run invokes the task, containing any failure: a panic or a returned
// error is handed to the timer's failure handler and never propagates
// into the worker loop.
func (t *Timeout) run() {
	defer func() {
		if r := recover(); r != nil {
			t.timer.failureHandler(t, r)
		}
	}()
	if err := t.task.Run(t); err != nil {
		t.timer.failureHandler(t, err)
	}
}
