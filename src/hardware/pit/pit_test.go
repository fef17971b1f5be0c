package pit

import (
	"testing"
	"time"
)

type countingPIC struct {
	c chan int
}

func (p *countingPIC) Raise(line int) {
	select {
	case p.c <- line:
	default:
	}
}

func TestDivisor(t *testing.T) {
	d, err := Divisor(100)
	if err != nil || d != 11931 {
		t.Errorf("100Hz divisor: %d %v", d, err)
	}
	if _, err := Divisor(10); err == nil {
		t.Errorf("10Hz does not fit in 16 bits")
	}
	if _, err := Divisor(0); err == nil {
		t.Errorf("0Hz accepted")
	}
}

func TestTicksRaiseLine(t *testing.T) {
	pic := &countingPIC{c: make(chan int, 4)}
	p := New(pic, 0)
	if err := p.Start(1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()
	if err := p.Start(1000); err == nil {
		t.Errorf("second start should fail")
	}
	select {
	case line := <-pic.c:
		if line != 0 {
			t.Errorf("raised line %d", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no tick")
	}
	if p.Reload() != 1193 {
		t.Errorf("reload %d", p.Reload())
	}
}
