// Package gpio maps the AM335x GPIO control registers and drives the
// stepper output lines: step pulses, the direction bus and the shared
// motor-enable line. Limit switch inputs need no setup here; every line
// not claimed as an output defaults to input.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gpio

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/huleg/beagleg/pkg/errors"
	"github.com/huleg/beagleg/pkg/log"
)

const (
	// Physical base addresses of the two GPIO banks carrying motor lines.
	gpio0Addr = 0x44e07000
	gpio1Addr = 0x4804c000

	// mmapSize covers the full register window of one bank.
	mmapSize = 0x2000

	// Register offsets within a bank.
	regOE      = 0x134 // output-enable: 0 bit = output
	regDataOut = 0x13c // sets all output bits at once
)

// Pin assignment mirroring the firmware's motor interface. Step lines
// live on GPIO-0, the direction bus and the enable line on GPIO-1.
const (
	Motor1StepBit = 2
	Motor2StepBit = 3
	Motor3StepBit = 4
	Motor4StepBit = 5
	Motor5StepBit = 7
	Motor6StepBit = 14
	Motor7StepBit = 15
	Motor8StepBit = 20

	Aux1Bit = 30
	Aux2Bit = 31

	// DirectionShift positions the contiguous direction bus on GPIO-1.
	DirectionShift = 12

	// MotorEnableBit is the shared -EN line on GPIO-1 (inverse logic).
	MotorEnableBit = 28
)

// motorOutBits are the step lines claimed as outputs on GPIO-0.
const motorOutBits = uint32(1<<Motor1StepBit | 1<<Motor2StepBit |
	1<<Motor3StepBit | 1<<Motor4StepBit |
	1<<Motor5StepBit | 1<<Motor6StepBit |
	1<<Motor7StepBit | 1<<Motor8StepBit)

// directionOutBits is the direction bus claimed as outputs on GPIO-1.
const directionOutBits = uint32(0xff) << DirectionShift

// Registers owns the mapped GPIO banks for the duration of a session.
type Registers struct {
	logger *log.Logger
	gpio0  []byte
	gpio1  []byte

	// Indirections for tests; default to /dev/mem + mmap.
	openMem   func() (int, error)
	mapBank   func(fd int, addr int64) ([]byte, error)
	unmapBank func(b []byte)
}

// New returns an unmapped register set backed by /dev/mem.
func New() *Registers {
	return &Registers{
		logger: log.GetLogger("gpio"),
		openMem: func() (int, error) {
			return unix.Open("/dev/mem", unix.O_RDWR|unix.O_SYNC, 0)
		},
		mapBank: func(fd int, addr int64) ([]byte, error) {
			return unix.Mmap(fd, addr, mmapSize,
				unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		},
		unmapBank: func(b []byte) {
			unix.Munmap(b)
		},
	}
}

// NewWithWindows returns a register set over caller-supplied windows,
// counted as already mapped. Used by tests and by callers simulating
// hardware; Unmap just drops the references.
func NewWithWindows(g0, g1 []byte) *Registers {
	return &Registers{
		logger:    log.GetLogger("gpio"),
		gpio0:     g0,
		gpio1:     g1,
		unmapBank: func(b []byte) {},
	}
}

// Map obtains process-visible windows onto both GPIO banks. If mapping
// the second bank fails, the first stays mapped — a long-standing quirk
// kept intact so the failure surface matches the firmware-era behavior;
// startup aborts either way and the process exits.
func (r *Registers) Map() error {
	fd, err := r.openMem()
	if err != nil {
		return errors.MapGPIOError("/dev/mem", err)
	}
	defer unix.Close(fd)

	r.gpio0, err = r.mapBank(fd, gpio0Addr)
	if err != nil {
		r.gpio0 = nil
		return errors.MapGPIOError("GPIO-0", err)
	}
	r.gpio1, err = r.mapBank(fd, gpio1Addr)
	if err != nil {
		r.gpio1 = nil
		return errors.MapGPIOError("GPIO-1", err)
	}
	return nil
}

// Unmap releases whatever banks are mapped. Idempotent.
func (r *Registers) Unmap() {
	if r.gpio0 != nil {
		r.unmapBank(r.gpio0)
		r.gpio0 = nil
	}
	if r.gpio1 != nil {
		r.unmapBank(r.gpio1)
		r.gpio1 = nil
	}
}

// Mapped reports which banks currently hold a window.
func (r *Registers) Mapped() (gpio0, gpio1 bool) {
	return r.gpio0 != nil, r.gpio1 != nil
}

// ConfigureDirections marks all claimed motor lines as outputs. The OE
// register uses 0 for output, so the mask is the complement of the
// claimed bits; everything unclaimed stays input.
func (r *Registers) ConfigureDirections() {
	writeReg(r.gpio0, regOE, ^(motorOutBits | 1<<Aux1Bit | 1<<Aux2Bit))
	writeReg(r.gpio1, regOE, ^(directionOutBits | 1<<MotorEnableBit))
}

// SetEnable drives the shared motor-enable line. Inverse logic: the
// -EN pin is active low, so enabling pulls the whole bank low.
func (r *Registers) SetEnable(on bool) {
	if on {
		writeReg(r.gpio1, regDataOut, 0)
	} else {
		writeReg(r.gpio1, regDataOut, 1<<MotorEnableBit)
	}
	r.logger.Debug("motor enable: %v", on)
}

// writeReg stores one 32-bit register. The atomic store guarantees a
// single word-width bus write, which memory-mapped peripherals require.
func writeReg(bank []byte, offset int, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&bank[offset])), value)
}

// readReg loads one 32-bit register.
func readReg(bank []byte, offset int) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&bank[offset])))
}
