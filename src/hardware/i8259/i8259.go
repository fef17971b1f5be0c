// Package i8259 models the cascaded pair of 8259A interrupt controllers.
// Requests arrive from device goroutines; everything else is driven by the
// CPU holding thread.
package i8259

import (
	"sync"
)

const (
	NumLines  = 16
	SlaveLine = 2 // the slave is cascaded on master line 2
)

// Line numbers used by the kernel.
const (
	TimerIRQ    = 0
	KeyboardIRQ = 1
	RTCIRQ      = 8
)

// PIC keeps the request (IRR), in-service (ISR) and mask (IMR) registers of
// both chips as one 16 bit view.  Lower line numbers have higher priority.
type PIC struct {
	mu       sync.Mutex
	irr      uint16
	isr      uint16
	imr      uint16
	wake     chan struct{}
	serviced [NumLines]uint64
	acks     [NumLines]uint64
}

// New returns a controller with every line masked except the cascade, as
// i8259_init leaves it.
func New() *PIC {
	return &PIC{
		imr:  0xffff &^ (1 << SlaveLine),
		wake: make(chan struct{}, 1),
	}
}

func (p *PIC) Enable(line int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imr &^= 1 << uint(line)
	if line >= 8 {
		p.imr &^= 1 << SlaveLine
	}
}

func (p *PIC) Disable(line int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imr |= 1 << uint(line)
}

// Raise is the device side: line asserts an interrupt request.  Requests on
// the same line coalesce until delivered.
func (p *PIC) Raise(line int) {
	p.mu.Lock()
	p.irr |= 1 << uint(line)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Acknowledge is the end-of-interrupt command for line.
func (p *PIC) Acknowledge(line int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isr &^= 1 << uint(line)
	p.acks[line]++
}

// Next picks the highest priority unmasked request that is not blocked by an
// interrupt already in service, and moves it from IRR to ISR.
func (p *PIC) Next() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line, ok := p.deliverable()
	if !ok {
		return 0, false
	}
	bit := uint16(1) << uint(line)
	p.irr &^= bit
	p.isr |= bit
	p.serviced[line]++
	return line, true
}

func (p *PIC) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.deliverable()
	return ok
}

func (p *PIC) deliverable() (int, bool) {
	ready := p.irr &^ p.imr
	for line := 0; line < NumLines; line++ {
		bit := uint16(1) << uint(line)
		if p.isr&bit != 0 {
			// in service at this priority blocks it and everything below
			return 0, false
		}
		if ready&bit != 0 {
			return line, true
		}
	}
	return 0, false
}

// Wakeup is signalled whenever a request is raised.
func (p *PIC) Wakeup() <-chan struct{} {
	return p.wake
}

// Serviced and Acks count deliveries and end-of-interrupts per line.
func (p *PIC) Serviced(line int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serviced[line]
}

func (p *PIC) Acks(line int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acks[line]
}

func (p *PIC) InService(line int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isr&(1<<uint(line)) != 0
}
