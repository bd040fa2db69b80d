// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package astimewheel provides a hashed timing wheel: an approximate,
// high-throughput timer optimised for large numbers of
// short-to-medium lived timeouts (cheap O(1) submit and cancel,
// expiration precision bounded by the tick duration).
// A scheduler facade with string task ids, fixed-rate re-scheduling and
// file-based configuration sits on top of the wheel (see Scheduler).
package astimewheel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/intuitivelabs/timestamp"
)

// timer lifecycle states; monotone, CAS only
const (
	timerInit int32 = iota
	timerStarted
	timerShutDown
)

// A HashedWheelTimer schedules TimerTasks for one-shot execution after
// a delay. Timeouts land in one of the wheel's buckets hashed by their
// deadline tick; a single worker goroutine advances the wheel one tick
// at a time and expires whatever is due, so a timeout fires within
// roughly one tick duration after its deadline, never before it.
//
// Submission and cancellation are lock-free for the caller: a submit
// pushes the new handle onto a lock-free queue, a cancel CASes the
// handle state and pushes the handle onto a second one; the worker
// drains both once per tick. Only the first submission waits, until the
// worker has started. The wheel structure itself is owned exclusively
// by the worker and needs no locks.
//
// The zero value is not usable; use NewHashedWheelTimer. Multiple
// independent timers may coexist.
type HashedWheelTimer struct {
	tickDuration time.Duration
	tickNanos    int64
	wheel        []bucket
	mask         int64

	state int32 // atomic: timerInit/timerStarted/timerShutDown

	timeouts  timeoutQueue // submitted, not yet on the wheel
	cancelled timeoutQueue // cancel winners awaiting unlink

	// startTS is set once by the worker before startedCh is closed;
	// the close is the publication barrier for all readers.
	startTS   timestamp.TS
	startedCh chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup

	currentTick int64 // worker only

	spawn          func(func())
	failureHandler FailureHandler
}

// An Option configures a HashedWheelTimer at construction.
type Option func(*HashedWheelTimer)

// WithSpawn sets the hook used to launch the worker goroutine
// (e.g. to run it through a supervised goroutine group). The default
// is a plain "go f()". Passing nil makes construction fail with
// ErrInvalidParameters.
func WithSpawn(spawn func(func())) Option {
	return func(wt *HashedWheelTimer) {
		wt.spawn = spawn
	}
}

// WithFailureHandler sets the handler receiving task failures (returned
// errors and recovered panics). The default logs them through the
// package logger. Passing nil makes construction fail with
// ErrInvalidParameters.
func WithFailureHandler(h FailureHandler) Option {
	return func(wt *HashedWheelTimer) {
		wt.failureHandler = h
	}
}

// NewHashedWheelTimer creates a stopped-clock timer that will lazily
// start its worker on the first NewTimeout call.
// tickDuration is the wheel resolution (timeouts fire within about one
// tick after their deadline); ticksPerWheel is rounded up to the next
// power of two.
// Note that tick durations that are too low cause high cpu usage when
// idle (too many wakeups); the sleep below one tick is rounded to
// milliseconds, so sub-millisecond ticks degrade to busy ticking.
func NewHashedWheelTimer(tickDuration time.Duration, ticksPerWheel int,
	opts ...Option) (*HashedWheelTimer, error) {
	if tickDuration <= 0 {
		return nil, ErrInvalidTickDuration
	}
	if ticksPerWheel <= 0 {
		return nil, ErrInvalidTicksPerWheel
	}
	wheelLen := normalizeTicksPerWheel(ticksPerWheel)
	wt := &HashedWheelTimer{
		tickDuration:   tickDuration,
		tickNanos:      int64(tickDuration),
		wheel:          make([]bucket, wheelLen),
		mask:           int64(wheelLen - 1),
		timeouts:       newTimeoutQueue(),
		cancelled:      newTimeoutQueue(),
		startedCh:      make(chan struct{}),
		stopCh:         make(chan struct{}),
		spawn:          func(f func()) { go f() },
		failureHandler: logTaskFailure,
	}
	for i := range wt.wheel {
		wt.wheel[i].init()
	}
	for _, o := range opts {
		o(wt)
	}
	if wt.spawn == nil || wt.failureHandler == nil {
		return nil, ErrInvalidParameters
	}
	return wt, nil
}

// WheelLen returns the actual wheel width (requested ticksPerWheel
// rounded up to a power of two).
func (wt *HashedWheelTimer) WheelLen() int {
	return len(wt.wheel)
}

// TickDuration returns the configured tick duration.
func (wt *HashedWheelTimer) TickDuration() time.Duration {
	return wt.tickDuration
}

// NewTimeout submits task to run once, delay from now, and returns its
// handle. A delay <= 0 is clamped to one tick (timeouts never fire
// synchronously, from inside the submit call).
// The first submission starts the worker and waits for it to publish
// the wheel's start instant; after that NewTimeout never blocks on
// timer-internal work.
// It fails with ErrTimerShutDown once Stop() was called.
func (wt *HashedWheelTimer) NewTimeout(task TimerTask,
	delay time.Duration) (*Timeout, error) {
	if task == nil {
		return nil, ErrInvalidParameters
	}
	if delay <= 0 {
		delay = wt.tickDuration
	}
	if err := wt.start(); err != nil {
		return nil, err
	}
	deadline := int64(timestamp.Now().Sub(wt.startTS)) + int64(delay)
	t := &Timeout{
		timer:    wt,
		task:     task,
		deadline: deadline,
	}
	wt.timeouts.push(t)
	return t, nil
}

// start lazily transitions INIT->STARTED, launching the worker, and
// waits until the worker has published the start instant.
// Safe to call concurrently; every caller returns only after the start
// instant is visible.
func (wt *HashedWheelTimer) start() error {
	switch atomic.LoadInt32(&wt.state) {
	case timerInit:
		if atomic.CompareAndSwapInt32(&wt.state, timerInit, timerStarted) {
			wt.wg.Add(1)
			wt.spawn(wt.worker)
		} else if atomic.LoadInt32(&wt.state) == timerShutDown {
			// lost the race to a Stop()
			return ErrTimerShutDown
		}
	case timerStarted:
	case timerShutDown:
		return ErrTimerShutDown
	}
	<-wt.startedCh
	return nil
}

// Stop shuts the timer down: the worker exits at its next safe point
// and all pending (un-expired) timeouts are abandoned - they neither
// expire nor are reported. Stop does not wait for an in-flight task
// body to finish.
// Idempotent. Stopping a timer that was never started still leaves it
// shut down (subsequent NewTimeout calls fail).
func (wt *HashedWheelTimer) Stop() {
	if atomic.CompareAndSwapInt32(&wt.state, timerStarted, timerShutDown) {
		close(wt.stopCh)
		return
	}
	// never started: shut down without a worker to wake
	atomic.CompareAndSwapInt32(&wt.state, timerInit, timerShutDown)
}

// IsRunning returns true if the worker was started and not yet shut
// down.
func (wt *HashedWheelTimer) IsRunning() bool {
	return atomic.LoadInt32(&wt.state) == timerStarted
}
