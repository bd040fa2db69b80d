// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"sync/atomic"
	"time"

	"github.com/intuitivelabs/timestamp"
)

// maxTransfersPerTick bounds how many newly submitted timeouts are
// moved onto the wheel in a single tick, so a submit burst cannot
// starve the expiration pass.
const maxTransfersPerTick = 100000

// stoppedTick is the waitForNextTick sentinel for "shut down while
// waiting".
const stoppedTick int64 = -1

// worker is the single goroutine owning the wheel. It publishes the
// start instant, then advances one tick at a time: wait, drain
// cancellations, ingest new timeouts, expire the current bucket.
// Everything the worker touches (bucket lists, timeout links, rounds)
// needs no locks; the only shared state are the two MPSC queues and the
// atomic handle/lifecycle states.
func (wt *HashedWheelTimer) worker() {
	defer wt.wg.Done()
	wt.startTS = timestamp.Now()
	// the close publishes startTS to every submitter waiting in start()
	close(wt.startedCh)
	if DBGon() {
		DBG("worker started: tick %s, wheel size %d\n",
			wt.tickDuration, len(wt.wheel))
	}
	for atomic.LoadInt32(&wt.state) == timerStarted {
		now := wt.waitForNextTick()
		if now == stoppedTick {
			break
		}
		idx := wt.currentTick & wt.mask
		wt.processCancelledTimeouts()
		wt.transferTimeoutsToBuckets()
		wt.wheel[idx].expireTimeouts(now)
		wt.currentTick++
	}
	if DBGon() {
		DBG("worker stopped at tick %d\n", wt.currentTick)
	}
	// pending timeouts still on the wheel or in the queues are
	// abandoned here; the handles stay reachable only through their
	// submitters
}

// waitForNextTick sleeps until the target instant of the next tick and
// returns the current time as a ns offset from the start instant
// (>= the tick target). The sleep is in milliseconds, rounded up; an
// early wake just re-sleeps. Returns stoppedTick if woken by shutdown.
func (wt *HashedWheelTimer) waitForNextTick() int64 {
	target := (wt.currentTick + 1) * wt.tickNanos
	for {
		now := int64(timestamp.Now().Sub(wt.startTS))
		sleepMs := (target - now + 999999) / 1000000
		if sleepMs <= 0 {
			return now
		}
		tmr := time.NewTimer(time.Duration(sleepMs) * time.Millisecond)
		select {
		case <-tmr.C:
		case <-wt.stopCh:
			tmr.Stop()
			if atomic.LoadInt32(&wt.state) == timerShutDown {
				return stoppedTick
			}
			// spurious wake: fall through and re-sleep
		}
	}
}

// processCancelledTimeouts drains the cancellation queue, unlinking any
// handle that still sits on a bucket. Runs before ingestion so a
// cancellation committed before this tick can never be (re)placed or
// expired by it.
func (wt *HashedWheelTimer) processCancelledTimeouts() {
	for {
		t := wt.cancelled.pop()
		if t == nil {
			break
		}
		if b := t.bucket; b != nil {
			b.remove(t)
		}
	}
}

// transferTimeoutsToBuckets drains a bounded batch of the ingress queue
// and places each timeout in the bucket of its deadline tick, recording
// how many full wheel revolutions remain before it is due.
func (wt *HashedWheelTimer) transferTimeoutsToBuckets() {
	for i := 0; i < maxTransfersPerTick; i++ {
		t := wt.timeouts.pop()
		if t == nil {
			break
		}
		if t.State() == StateCancelled {
			// cancelled before it ever reached the wheel
			continue
		}
		calculated := calculatedTick(t.deadline, wt.tickNanos)
		t.remainingRounds = remainingRounds(calculated, wt.currentTick,
			len(wt.wheel))
		idx := placementTick(calculated, wt.currentTick) & wt.mask
		wt.wheel[idx].addTimeout(t)
	}
}
