// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"unsafe"

	"github.com/bytedance/gopkg/collection/lscq"
)

// timeoutQueue is an unbounded lock-free FIFO of *Timeout, used for the
// two submitter→worker queues (ingress and cancellation).
// Any goroutine may push; only the worker pops. The underlying lscq
// queue is MPMC, so the MPSC discipline here is a usage convention, not
// a structural one.
type timeoutQueue struct {
	q *lscq.PointerQueue
}

func newTimeoutQueue() timeoutQueue {
	return timeoutQueue{q: lscq.NewPointer()}
}

// push enqueues t. Never blocks.
func (q timeoutQueue) push(t *Timeout) {
	q.q.Enqueue(unsafe.Pointer(t))
}

// pop dequeues the oldest timeout, or returns nil if the queue is
// empty.
func (q timeoutQueue) pop() *Timeout {
	p, ok := q.q.Dequeue()
	if !ok {
		return nil
	}
	return (*Timeout)(p)
}
