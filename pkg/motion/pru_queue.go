// PRU-backed motion queue and its lifecycle sequencing.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

import (
	"sync/atomic"

	"github.com/huleg/beagleg/pkg/errors"
	"github.com/huleg/beagleg/pkg/log"
)

// LifecycleState tracks the startup/shutdown progression of a PRU queue.
// States advance strictly forward; none is re-enterable.
type LifecycleState int32

const (
	// Uninitialized is the state before startup has completed.
	Uninitialized LifecycleState = iota

	// Running means the firmware executes and segments may be enqueued.
	Running

	// ShuttingDown means Shutdown has started draining and tearing down.
	ShuttingDown

	// Stopped means all resources are released. Hardware operations
	// after this point are undefined.
	Stopped
)

// String returns the lifecycle state name.
func (s LifecycleState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RegisterController is the contract of the GPIO register mapper: direct
// control over the step/direction/enable output lines.
type RegisterController interface {
	// Map obtains process-visible windows onto the control registers.
	Map() error

	// Unmap releases the windows. Idempotent.
	Unmap()

	// ConfigureDirections marks every claimed output line as an output;
	// everything else stays input.
	ConfigureDirections()

	// SetEnable drives the shared motor-enable line. Inverted logic:
	// enabling pulls the line low.
	SetEnable(on bool)
}

// Coprocessor is the contract of the PRU subsystem: the shared memory
// block, the firmware loader and the event interrupt.
type Coprocessor interface {
	// Open initializes the subsystem: interrupt path plus a zeroed
	// shared memory block.
	Open() error

	// DataRAM returns the shared block the ring buffer lives in. Only
	// valid after Open.
	DataRAM() []byte

	// LoadAndStart writes the firmware image into the coprocessor's
	// program memory and starts it.
	LoadAndStart(image []byte) error

	// WaitEvent blocks until the coprocessor signals completion of work
	// and re-arms the signal.
	WaitEvent()

	// Disable halts the coprocessor and releases the subsystem handle.
	Disable()
}

// PRUMotionQueue is the hardware-backed MotionQueue. It owns the GPIO
// registers, the PRU subsystem and the ring buffer for the duration of
// one session.
type PRUMotionQueue struct {
	regs   RegisterController
	pru    Coprocessor
	ring   *ring
	logger *log.Logger
	state  atomic.Int32
}

// NewPRUMotionQueue runs the startup sequence and returns a queue in the
// Running state: map registers, configure pin directions, force motors
// off, open the PRU subsystem and its shared block, lay the ring over
// it, load and start the firmware. A failing step aborts with an error
// naming the step; resources acquired by earlier steps are not rolled
// back (the caller owns process teardown on a failed start — motors are
// left unpowered either way).
func NewPRUMotionQueue(regs RegisterController, pru Coprocessor, firmware []byte) (*PRUMotionQueue, error) {
	logger := log.GetLogger("motion")
	q := &PRUMotionQueue{
		regs:   regs,
		pru:    pru,
		logger: logger,
	}

	if err := regs.Map(); err != nil {
		return nil, errors.StartupError("map registers", err)
	}
	regs.ConfigureDirections()
	regs.SetEnable(false) // motors off initially

	if err := pru.Open(); err != nil {
		return nil, errors.StartupError("open coprocessor", err)
	}

	block := pru.DataRAM()
	if len(block) < RingBufferSize {
		return nil, errors.StartupError("map communication block",
			errors.SharedMemoryError("data RAM smaller than ring buffer", nil))
	}
	r, err := newRing(block[:RingBufferSize], pru, logger)
	if err != nil {
		return nil, errors.StartupError("map communication block", err)
	}
	q.ring = r

	if err := pru.LoadAndStart(firmware); err != nil {
		return nil, errors.StartupError("load firmware", err)
	}

	q.state.Store(int32(Running))
	logger.Info("PRU motion queue running (%d slots of %d bytes)", QueueLen, SegmentSize)
	return q, nil
}

// State returns the current lifecycle state.
func (q *PRUMotionQueue) State() LifecycleState {
	return LifecycleState(q.state.Load())
}

// Enqueue hands one segment to the PRU, blocking while the ring is full.
func (q *PRUMotionQueue) Enqueue(segment *MotionSegment) {
	q.ring.enqueue(segment)
}

// WaitQueueEmpty blocks until the PRU has executed everything enqueued.
func (q *PRUMotionQueue) WaitQueueEmpty() {
	q.ring.waitQueueEmpty()
}

// MotorEnable drives the shared enable line.
func (q *PRUMotionQueue) MotorEnable(on bool) {
	q.regs.SetEnable(on)
}

// Shutdown stops the session: with flush it enqueues one exit sentinel
// and drains first, then unconditionally halts the PRU, forces motors
// off and unmaps the registers. Runs at most once; later calls are
// ignored with a warning.
func (q *PRUMotionQueue) Shutdown(flush bool) {
	if !q.state.CompareAndSwap(int32(Running), int32(ShuttingDown)) {
		q.logger.Warn("shutdown ignored in state %s", q.State())
		return
	}
	if flush {
		end := &MotionSegment{State: StateExit}
		q.ring.enqueue(end)
		q.ring.waitQueueEmpty()
	}
	q.pru.Disable()
	q.regs.SetEnable(false)
	q.regs.Unmap()
	q.state.Store(int32(Stopped))
	q.logger.Info("PRU motion queue stopped (flush=%v)", flush)
}

// Snapshot reports the queue state for diagnostics. Safe to call from
// another goroutine: it only performs atomic reads of the slot states
// and host-local counters.
func (q *PRUMotionQueue) Snapshot() QueueSnapshot {
	state := q.State()
	if state == Stopped {
		// The shared block is unmapped once stopped.
		return QueueSnapshot{Lifecycle: state.String()}
	}
	return QueueSnapshot{
		Lifecycle:  state.String(),
		Cursor:     q.ring.cursor(),
		SlotStates: q.ring.slotStates(),
		Enqueued:   q.ring.enqueued.Load(),
	}
}
