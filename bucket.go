// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

// bucket is one wheel slot: a circular doubly-linked list of Timeouts
// with a sentinel head, insertion order preserved (append at tail).
// The links are intrusive (Timeout.next/prev), so membership changes
// never allocate.
// There's no internal locking: only the worker goroutine touches bucket
// structure and the links of its members.
type bucket struct {
	head Timeout // sentinel, only next & prev are used
}

// init initialises the sentinel (empty circular list).
func (b *bucket) init() {
	b.head.next = &b.head
	b.head.prev = &b.head
}

// isEmpty returns true if the bucket holds no timeouts.
func (b *bucket) isEmpty() bool {
	return b.head.next == &b.head
}

// addTimeout appends t at the tail of the bucket and sets its bucket
// back-reference. t must be detached (not on any bucket).
func (b *bucket) addTimeout(t *Timeout) {
	if t.bucket != nil || t.next != nil || t.prev != nil {
		PANIC("addTimeout called on an attached timeout:"+
			" %p bucket %p n: %p p: %p\n", t, t.bucket, t.next, t.prev)
	}
	t.bucket = b
	t.prev = b.head.prev
	t.next = &b.head
	b.head.prev.next = t
	b.head.prev = t
}

// remove splices t out of the bucket, clearing its links and bucket
// back-reference, and returns t's successor prior to removal (the
// sentinel head if t was the tail) so a traversal can continue safely
// after self-removal.
func (b *bucket) remove(t *Timeout) *Timeout {
	if t == &b.head {
		PANIC("trying to remove the bucket sentinel %p\n", t)
	}
	if t.next == nil || t.prev == nil {
		PANIC("remove called on a detached timeout %p (n: %p p: %p)\n",
			t, t.next, t.prev)
	}
	next := t.next
	t.prev.next = t.next
	t.next.prev = t.prev
	t.next = nil
	t.prev = nil
	t.bucket = nil
	return next
}

// expireTimeouts walks the bucket once for the tick ending at now
// (a nanosecond offset from the timer start instant): timeouts whose
// rounds ran out are spliced out and expired, all others get their
// rounds count decremented in place.
// The successor must be read before any removal, since removal clears
// the links.
func (b *bucket) expireTimeouts(now int64) {
	for t := b.head.next; t != &b.head; {
		next := t.next
		if t.remainingRounds <= 0 {
			next = b.remove(t)
			if t.deadline <= now {
				t.expire()
			} else {
				// placed on the current tick before it was due;
				// must not happen
				BUG("timeout %p expired too early: deadline %d > now %d\n",
					t, t.deadline, now)
			}
		} else {
			t.remainingRounds--
		}
		t = next
	}
}
