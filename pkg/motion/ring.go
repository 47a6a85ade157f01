// Ring buffer handshake between the host and the PRU.
//
// The host is the only producer and the PRU the only consumer, so no lock
// is needed: the host flips a slot's state byte Empty -> non-Empty after
// every other field of the slot is in place, and the PRU flips it back to
// Empty once the segment has been executed. Each side only ever writes the
// transitions it owns.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/huleg/beagleg/pkg/log"
)

// EventWaiter blocks the caller until the PRU signals progress on the
// queue. The wait has no timeout and cannot be cancelled: if the PRU
// stalls, the host stalls with it. Callers needing liveness guarantees
// must layer a watchdog above this package.
type EventWaiter interface {
	WaitEvent()
}

// ring is the producer side of the shared ring buffer. The slot array
// lives in memory also mapped by the PRU; pos is host-local and never
// visible to the consumer.
type ring struct {
	slots  []MotionSegment
	waiter EventWaiter
	logger *log.Logger

	pos      atomic.Uint32
	enqueued atomic.Uint64
}

// newRing lays a segment ring over block. The block must be 4-byte
// aligned (mmap'd PRU data RAM is page aligned) and hold at least one
// slot. Every slot is marked Empty and the cursor reset, so the consumer
// sees a drained queue regardless of what the memory held before.
func newRing(block []byte, waiter EventWaiter, logger *log.Logger) (*ring, error) {
	if len(block) < SegmentSize {
		return nil, fmt.Errorf("motion: ring block of %d bytes is smaller than one %d byte slot", len(block), SegmentSize)
	}
	if uintptr(unsafe.Pointer(&block[0]))%4 != 0 {
		return nil, fmt.Errorf("motion: ring block is not 4-byte aligned")
	}
	r := &ring{
		slots:  unsafe.Slice((*MotionSegment)(unsafe.Pointer(&block[0])), len(block)/SegmentSize),
		waiter: waiter,
		logger: logger,
	}
	for i := range r.slots {
		r.storeState(i, StateEmpty)
	}
	return r, nil
}

// stateWord returns the 32-bit word holding slot i's state byte. The
// state byte sits at offset 0 of the slot; atomics on the containing
// word give the acquire/release ordering the handshake needs without
// touching bytes the consumer owns (the other bytes of the word are
// host-written fields the consumer never modifies).
func (r *ring) stateWord(i int) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.slots[i]))
}

// loadState reads slot i's state byte with acquire ordering, so that a
// consumer's Empty flip also publishes that it is done reading the slot.
func (r *ring) loadState(i int) uint8 {
	return uint8(atomic.LoadUint32(r.stateWord(i)))
}

// storeState writes slot i's state byte with release ordering, making
// every previously written field of the slot visible before the new
// state is.
func (r *ring) storeState(i int, state uint8) {
	word := atomic.LoadUint32(r.stateWord(i))
	atomic.StoreUint32(r.stateWord(i), word&^0xff|uint32(state))
}

// acquireFreeSlot blocks until the slot under the cursor is Empty, then
// advances the cursor past it. The PRU vacates slots in the same fixed
// order the host fills them, which is what makes execution order equal
// enqueue order.
func (r *ring) acquireFreeSlot() int {
	idx := int(r.pos.Load()) % len(r.slots)
	for r.loadState(idx) != StateEmpty {
		r.waiter.WaitEvent()
	}
	r.pos.Store(uint32(idx) + 1)
	return idx
}

// enqueue hands one segment to the PRU. It copies the segment into the
// next free slot with the state byte still Empty, then flips the state
// to the caller's intended value in a single release store. The PRU,
// which only inspects the state byte, therefore never observes a
// partially written segment.
//
// Enqueueing a segment whose State is StateEmpty would enqueue nothing;
// that is an upstream programming defect and panics.
func (r *ring) enqueue(segment *MotionSegment) {
	stateToSend := segment.State
	if stateToSend == StateEmpty {
		panic("motion: enqueue of a segment in empty state")
	}

	element := *segment
	element.State = StateEmpty
	idx := r.acquireFreeSlot()
	r.slots[idx] = element

	// Fully initialized. Tell the busy-waiting PRU by flipping the state.
	r.storeState(idx, stateToSend)
	r.enqueued.Add(1)
	dump(r.logger, idx, segment)
}

// waitQueueEmpty blocks until the most recently filled slot has been
// vacated by the PRU, i.e. everything enqueued so far has executed.
func (r *ring) waitQueueEmpty() {
	last := int((r.pos.Load() - 1) % uint32(len(r.slots)))
	for r.loadState(last) != StateEmpty {
		r.waiter.WaitEvent()
	}
}

// cursor returns the index of the next slot the host will fill.
func (r *ring) cursor() int {
	return int(r.pos.Load()) % len(r.slots)
}

// slotStates returns a snapshot of every slot's state byte. Read-only
// and safe against the PRU's concurrent Empty flips.
func (r *ring) slotStates() []uint8 {
	states := make([]uint8, len(r.slots))
	for i := range r.slots {
		states[i] = r.loadState(i)
	}
	return states
}
