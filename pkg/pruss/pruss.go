// Package pruss drives the AM335x PRU-ICSS subsystem through the
// uio_pruss kernel driver: it maps the PRU data RAM shared with the
// host, loads firmware into instruction RAM, starts and halts the core,
// and exposes the event interrupt the firmware raises whenever it
// finishes a piece of work.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pruss

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/huleg/beagleg/pkg/errors"
	"github.com/huleg/beagleg/pkg/log"
)

const (
	// uioDevice is the uio_pruss device node exposing PRU0's EVTOUT-0
	// interrupt and the whole PRU-ICSS register/memory window.
	uioDevice = "/dev/uio0"

	// prussMapSize covers PRU0 data RAM through instruction RAM.
	prussMapSize = 0x40000

	// Offsets inside the PRU-ICSS window.
	pru0DataRAM  = 0x00000
	dataRAMSize  = 0x2000
	intcBase     = 0x20000
	pru0Control  = 0x22000
	pru0InstrRAM = 0x34000
	instrRAMSize = 0x2000

	// INTC register offsets.
	intcSICR = 0x24 // writing a system event number clears it

	// pruArmEvent is the system event the firmware fires toward the
	// host (PRU0_ARM_INTERRUPT), routed to EVTOUT-0.
	pruArmEvent = 19

	// Control register values, matching what prussdrv writes: bit 1
	// releases the core to run, a bare SOFT_RST_N keeps it halted.
	ctrlEnable  = 0x2
	ctrlDisable = 0x1
)

// PRU is a handle on the PRU subsystem. Zero value is unopened; call
// Open before anything else.
type PRU struct {
	logger *log.Logger
	fd     int
	mem    []byte
	opened bool
}

// New returns an unopened PRU handle.
func New() *PRU {
	return &PRU{
		logger: log.GetLogger("pruss"),
		fd:     -1,
	}
}

// Open opens the uio device, maps the PRU-ICSS window and zero-fills the
// PRU0 data RAM so the ring buffer starts with every slot free. The uio
// read side is the interrupt path; no separate setup is needed beyond
// holding the fd.
func (p *PRU) Open() error {
	fd, err := unix.Open(uioDevice, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return errors.CoprocessorOpenError(uioDevice, err)
	}

	mem, err := unix.Mmap(fd, 0, prussMapSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return errors.SharedMemoryError("couldn't map PRU memory for queue", err)
	}

	p.fd = fd
	p.mem = mem
	p.opened = true

	dram := p.DataRAM()
	for i := range dram {
		dram[i] = 0
	}

	p.logger.Info("PRU subsystem open (%s, %d byte data RAM)", uioDevice, dataRAMSize)
	return nil
}

// DataRAM returns the PRU0 data RAM, the memory block shared with the
// firmware. Only valid after Open.
func (p *PRU) DataRAM() []byte {
	return p.mem[pru0DataRAM : pru0DataRAM+dataRAMSize]
}

// LoadAndStart copies a firmware image into PRU0 instruction RAM and
// releases the core to execute it. The core is held in reset while the
// image is written.
func (p *PRU) LoadAndStart(image []byte) error {
	if len(image) == 0 {
		return errors.FirmwareError("empty firmware image")
	}
	if len(image) > instrRAMSize {
		return errors.FirmwareError("firmware image exceeds instruction RAM")
	}

	p.writeReg(pru0Control, ctrlDisable)
	copy(p.mem[pru0InstrRAM:pru0InstrRAM+len(image)], image)
	p.writeReg(pru0Control, ctrlEnable)

	p.logger.Info("PRU firmware started (%d bytes)", len(image))
	return nil
}

// WaitEvent blocks until the firmware raises its event, then clears the
// system event and re-arms the uio interrupt so the next one can be
// observed. There is deliberately no timeout and no cancellation: the
// PRU is an always-progressing hardware actor, and the queue's flow
// control is exactly this blocking.
func (p *PRU) WaitEvent() {
	// The read returns the 4-byte interrupt count once the irq fires.
	var count [4]byte
	if _, err := unix.Read(p.fd, count[:]); err != nil {
		// Only reachable if the fd was torn down underneath us, which
		// the shutdown ordering prevents while anyone can still wait.
		p.logger.Error("event wait failed: %v", err)
		return
	}

	// Clear the system event in the INTC, then unmask the uio irq.
	p.writeReg(intcBase+intcSICR, pruArmEvent)
	var one = [4]byte{1, 0, 0, 0}
	if _, err := unix.Write(p.fd, one[:]); err != nil {
		p.logger.Error("event re-arm failed: %v", err)
	}
}

// Disable halts the PRU core and releases the subsystem handle.
func (p *PRU) Disable() {
	if !p.opened {
		return
	}
	p.writeReg(pru0Control, ctrlDisable)
	unix.Munmap(p.mem)
	unix.Close(p.fd)
	p.mem = nil
	p.fd = -1
	p.opened = false
	p.logger.Info("PRU subsystem released")
}

// writeReg stores one 32-bit PRU-ICSS register as a single word write.
func (p *PRU) writeReg(offset int, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&p.mem[offset])), value)
}
