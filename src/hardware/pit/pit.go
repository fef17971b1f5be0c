// Package pit is channel 0 of the 8253/8254 programmable interval timer,
// wired to IRQ 0.
package pit

import (
	"fmt"
	"sync"
	"time"
)

// BaseHz is the oscillator feeding the counters.
const BaseHz = 1193182

// Raiser is the PIC's device side.
type Raiser interface {
	Raise(line int)
}

// PIT fires line on the interrupt controller at the programmed rate.
type PIT struct {
	mu      sync.Mutex
	pic     Raiser
	line    int
	divisor uint16
	ticker  *time.Ticker
	done    chan struct{}
}

func New(pic Raiser, line int) *PIT {
	return &PIT{pic: pic, line: line}
}

// Divisor is the reload value for hz, as written to the mode 3 counter.
func Divisor(hz int) (uint16, error) {
	if hz <= 0 {
		return 0, fmt.Errorf("pit: bad frequency %d", hz)
	}
	d := BaseHz / hz
	if d < 1 || d > 0xffff {
		return 0, fmt.Errorf("pit: frequency %d out of range", hz)
	}
	return uint16(d), nil
}

// Start programs the counter for hz and begins raising interrupts.
func (p *PIT) Start(hz int) error {
	d, err := Divisor(hz)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		return fmt.Errorf("pit: already running")
	}
	p.divisor = d
	period := time.Duration(int64(d) * int64(time.Second) / BaseHz)
	p.ticker = time.NewTicker(period)
	p.done = make(chan struct{})
	go p.run(p.ticker, p.done)
	return nil
}

func (p *PIT) run(t *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-t.C:
			p.pic.Raise(p.line)
		case <-done:
			return
		}
	}
}

func (p *PIT) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	close(p.done)
	p.ticker = nil
}

func (p *PIT) Reload() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.divisor
}
