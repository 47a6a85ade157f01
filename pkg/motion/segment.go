// Motion segment layout shared with the PRU stepper firmware.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

import (
	"unsafe"

	"github.com/huleg/beagleg/pkg/log"
)

// MotorCount is the number of stepper channels the firmware drives.
// It fixes the width of DirectionBits and the Fractions array.
const MotorCount = 8

// Segment states. The state byte is the only field the PRU inspects to
// decide whether a slot holds work; everything else is opaque payload.
const (
	// StateEmpty marks a free slot. The PRU skips it.
	StateEmpty uint8 = 0

	// StateFilled marks a slot holding one motion segment to execute.
	StateFilled uint8 = 1

	// StateExit tells the PRU to halt after processing. At most one
	// exit sentinel may be enqueued per session.
	StateExit uint8 = 2
)

// DelayCycleShift is the fixed-point shift applied to HiresAccelCycles.
// The firmware uses the sub-cycle bits to spread acceleration steps evenly.
const DelayCycleShift = 5

// QueueLen is the slot count of the hardware ring buffer. It must match
// the QUEUE_LEN the PRU firmware was assembled with; a mismatch is not
// detectable at runtime.
const QueueLen = 16

// MotionSegment is one timed motion phase (accelerate, cruise, decelerate)
// for all motors simultaneously. The layout is bit-exact with the C struct
// the PRU firmware reads out of its data RAM, so fields must not be
// reordered or resized.
type MotionSegment struct {
	// State is the slot handshake byte; see the State* constants.
	State uint8

	// DirectionBits holds one direction bit per motor.
	DirectionBits uint8

	// Step counts for the three phases of this segment.
	LoopsAccel  uint16
	LoopsTravel uint16
	LoopsDecel  uint16

	// HiresAccelCycles is the initial per-step cycle count of the
	// acceleration ramp, pre-shifted by DelayCycleShift.
	HiresAccelCycles uint32

	// TravelDelayCycles is the per-step cycle delay in the cruise phase.
	TravelDelayCycles uint32

	// Fractions seed the per-motor fractional step accumulators used by
	// the firmware to interpolate sub-steps against the dominant axis.
	Fractions [MotorCount]uint32
}

// SegmentSize is the byte size of one ring buffer slot.
const SegmentSize = int(unsafe.Sizeof(MotionSegment{}))

// RingBufferSize is the byte size of the hardware ring buffer inside the
// PRU data RAM.
const RingBufferSize = QueueLen * SegmentSize

// dump logs an enqueued segment at debug level, mirroring what is about
// to become visible to the PRU.
func dump(logger *log.Logger, slot int, s *MotionSegment) {
	if s.State == StateExit {
		logger.Debug("enqueue[%02d]: EXIT", slot)
		return
	}
	logger.WithFields(log.Fields{
		"dir":    s.DirectionBits,
		"accel":  s.LoopsAccel,
		"travel": s.LoopsTravel,
		"decel":  s.LoopsDecel,
		"total":  int(s.LoopsAccel) + int(s.LoopsTravel) + int(s.LoopsDecel),
		"ad":     s.HiresAccelCycles >> DelayCycleShift,
		"td":     s.TravelDelayCycles,
	}).Debugf("enqueue[%02d]", slot)
}
