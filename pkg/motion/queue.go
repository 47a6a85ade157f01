// Package motion provides the motion-command channel between the host
// and the PRU stepper firmware: a shared-memory ring buffer of motion
// segments with a race-free single-writer handshake and interrupt-driven
// backpressure.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

// MotionQueue is the capability set exposed to the motion planner. It is
// bound once at startup to either the PRU-backed implementation or the
// dummy one; callers never see which.
type MotionQueue interface {
	// Enqueue hands one segment to the consumer. Blocks while the ring
	// is full; that blocking is the only flow control in the system.
	Enqueue(segment *MotionSegment)

	// WaitQueueEmpty blocks until every previously enqueued segment has
	// been fully executed.
	WaitQueueEmpty()

	// MotorEnable switches the shared motor-enable line.
	MotorEnable(on bool)

	// Shutdown stops the queue. With flush it first enqueues an exit
	// sentinel and drains; without, pending motion is abandoned.
	// Expected to run at most once; queue operations after Shutdown
	// are undefined.
	Shutdown(flush bool)
}

// QueueSnapshot is a point-in-time view of a queue for diagnostics.
type QueueSnapshot struct {
	// Lifecycle is the textual lifecycle state.
	Lifecycle string `json:"lifecycle"`

	// Cursor is the index of the next slot the host will fill.
	Cursor int `json:"cursor"`

	// SlotStates holds the state byte of every ring slot, in physical
	// order. Empty for the dummy queue.
	SlotStates []uint8 `json:"slot_states"`

	// Enqueued counts segments handed over since startup.
	Enqueued uint64 `json:"enqueued"`
}

// DummyMotionQueue is the inert stand-in used to exercise upstream
// planning logic without a PRU attached. Every operation is a no-op and
// Enqueue never blocks regardless of call volume.
type DummyMotionQueue struct{}

// NewDummyMotionQueue returns a queue that swallows everything.
func NewDummyMotionQueue() *DummyMotionQueue {
	return &DummyMotionQueue{}
}

// Enqueue discards the segment without blocking.
func (q *DummyMotionQueue) Enqueue(segment *MotionSegment) {}

// WaitQueueEmpty returns immediately.
func (q *DummyMotionQueue) WaitQueueEmpty() {}

// MotorEnable does nothing.
func (q *DummyMotionQueue) MotorEnable(on bool) {}

// Shutdown does nothing.
func (q *DummyMotionQueue) Shutdown(flush bool) {}

// Snapshot reports an empty view.
func (q *DummyMotionQueue) Snapshot() QueueSnapshot {
	return QueueSnapshot{Lifecycle: "dummy"}
}
