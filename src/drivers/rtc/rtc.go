// Package rtc virtualizes the real time clock.  The chip interrupts at a
// fixed base rate; each open file sees its own slower rate.
package rtc

import (
	"encoding/binary"

	"serenity/src/fdops"
)

const (
	DefaultBaseHz = 1024
	OpenHz        = 2
)

// Waiter parks the caller until the next interrupt has been serviced.
type Waiter interface {
	Hlt()
}

type Driver struct {
	baseHz uint32
	ticks  uint64
	wait   Waiter
}

type rate struct {
	hz uint32
}

func New(baseHz uint32, w Waiter) *Driver {
	return &Driver{baseHz: baseHz, wait: w}
}

func (d *Driver) Kind() fdops.Kind {
	return fdops.KindRTC
}

// Tick is called from the RTC interrupt handler.
func (d *Driver) Tick() {
	d.ticks++
}

func (d *Driver) Ticks() uint64 {
	return d.ticks
}

// Open resets the file's rate to 2Hz.
func (d *Driver) Open(f *fdops.File, _ string) error {
	f.Private = &rate{hz: OpenHz}
	return nil
}

func (d *Driver) Close(f *fdops.File) error {
	f.Private = nil
	return nil
}

func fileRate(f *fdops.File) *rate {
	r, ok := f.Private.(*rate)
	if !ok {
		r = &rate{hz: OpenHz}
		f.Private = r
	}
	return r
}

// Read returns after one period of the file's rate, that is baseHz/rate
// interrupts from now.
func (d *Driver) Read(f *fdops.File, _ []byte) (int, error) {
	period := uint64(d.baseHz / fileRate(f).hz)
	start := d.ticks
	for d.ticks-start < period {
		d.wait.Hlt()
	}
	return 0, nil
}

// Write takes exactly four bytes holding a power of two between 2 and the
// base rate.
func (d *Driver) Write(f *fdops.File, buf []byte) (int, error) {
	if len(buf) != 4 {
		return 0, fdops.ErrInvalid
	}
	hz := binary.LittleEndian.Uint32(buf)
	if hz < 2 || hz > d.baseHz || hz&(hz-1) != 0 {
		return 0, fdops.ErrInvalid
	}
	fileRate(f).hz = hz
	return 0, nil
}

// Rate is the file's current virtual frequency.
func Rate(f *fdops.File) uint32 {
	return fileRate(f).hz
}
