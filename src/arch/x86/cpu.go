package x86

import (
	"sync"
	"sync/atomic"

	"serenity/src/lib/trust"
)

// NumIRQ is the number of lines on the cascaded pair of 8259s.
const NumIRQ = 16

// InterruptController is the CPU's view of the PIC.  Next hands out the
// highest priority request that may be delivered now and marks it in
// service; the handler must acknowledge it.
type InterruptController interface {
	Next() (int, bool)
	Pending() bool
	Wakeup() <-chan struct{}
}

// Thread is a kernel stack with something running on it.  Only the thread
// holding the CPU runs; the others are parked in SwitchTo.
type Thread struct {
	name string
	wake chan struct{}
	esp  uint32
	ebp  uint32
}

func (t *Thread) Name() string {
	return t.name
}

// CPU is a single processor.  Interrupts are only taken at Poll and Hlt, and
// only when the interrupt flag is set.  Everything but the controller's
// request lines and Stop is owned by whichever thread holds the CPU.
type CPU struct {
	TSS      TSS
	iflag    bool
	pic      InterruptController
	handlers [NumIRQ]func()
	boot     *Thread
	current  *Thread
	stopping int32
	stopOnce sync.Once
	stopReq  chan struct{}
	done     chan struct{}
	spurious int

	// fault is called on the faulting process's kernel stack and must not
	// return (it halts the process).  exit is the same for a program that
	// returns without halting.
	fault func(Fault)
	exit  func()
}

// NewCPU returns a processor with interrupts disabled running on the boot
// thread, which is the caller's goroutine.
func NewCPU(pic InterruptController) *CPU {
	boot := &Thread{name: "boot", wake: make(chan struct{}), esp: BootStackTop}
	boot.ebp = boot.esp
	return &CPU{
		TSS:     TSS{SS0: KernelDS},
		pic:     pic,
		boot:    boot,
		current: boot,
		stopReq: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Handle installs fn as the handler for an interrupt line.
func (c *CPU) Handle(line int, fn func()) {
	c.handlers[line] = fn
}

// SetTrapHandlers installs the kernel's fault and exit paths for user mode.
func (c *CPU) SetTrapHandlers(fault func(Fault), exit func()) {
	c.fault = fault
	c.exit = exit
}

func (c *CPU) InterruptsEnabled() bool {
	return c.iflag
}

// EnableInterrupts is sti.
func (c *CPU) EnableInterrupts() {
	c.iflag = true
}

// DisableInterrupts is cli and returns the previous state for
// RestoreInterrupts.
func (c *CPU) DisableInterrupts() bool {
	prev := c.iflag
	c.iflag = false
	return prev
}

func (c *CPU) RestoreInterrupts(prev bool) {
	c.iflag = prev
}

// Current is the thread holding the CPU.
func (c *CPU) Current() *Thread {
	return c.current
}

func (c *CPU) Boot() *Thread {
	return c.boot
}

// ESP and EBP are the stack registers of the running thread's current
// kernel frame.
func (c *CPU) ESP() uint32 {
	return c.current.esp
}

func (c *CPU) EBP() uint32 {
	return c.current.ebp
}

// Spawn creates a thread with its own kernel stack at stackTop.  fn starts
// the first time something switches to the thread.  A thread whose function
// returns gives the CPU back to the boot thread.
func (c *CPU) Spawn(name string, stackTop uint32, fn func()) *Thread {
	t := &Thread{name: name, wake: make(chan struct{}), esp: stackTop, ebp: stackTop}
	go func() {
		<-t.wake
		fn()
		trust.Warnf("thread %s returned, resuming %s", t.name, c.boot.name)
		c.current = c.boot
		c.boot.wake <- struct{}{}
	}()
	return t
}

// SwitchTo hands the CPU to next and parks the caller until some thread
// switches back to it.
func (c *CPU) SwitchTo(next *Thread) {
	prev := c.current
	if prev == next {
		return
	}
	c.current = next
	next.wake <- struct{}{}
	<-prev.wake
	c.checkStop()
}

// Poll is an instruction boundary: any deliverable interrupt is taken here.
func (c *CPU) Poll() {
	c.checkStop()
	if !c.iflag {
		return
	}
	for {
		line, ok := c.pic.Next()
		if !ok {
			return
		}
		c.dispatch(line)
	}
}

func (c *CPU) dispatch(line int) {
	// interrupt gate: IF is clear in the handler and comes back with iret
	c.iflag = false
	h := c.handlers[line]
	if h == nil {
		c.spurious++
		trust.Warnf("no handler for irq %d", line)
	} else {
		h()
	}
	c.iflag = true
}

// Hlt waits for the next interrupt and services it.  Halting with
// interrupts disabled would never wake, so that is a fatal kernel error.
func (c *CPU) Hlt() {
	if !c.iflag {
		panic("hlt with interrupts disabled")
	}
	for !c.pic.Pending() {
		select {
		case <-c.pic.Wakeup():
		case <-c.stopReq:
			c.park()
		}
	}
	c.Poll()
}

// Stop asks the CPU to stop at the next instruction boundary.  Done is closed
// once the thread holding the CPU has parked, after which kernel state may be
// read from other goroutines.
func (c *CPU) Stop() {
	c.stopOnce.Do(func() {
		atomic.StoreInt32(&c.stopping, 1)
		close(c.stopReq)
	})
}

func (c *CPU) Done() <-chan struct{} {
	return c.done
}

func (c *CPU) checkStop() {
	if atomic.LoadInt32(&c.stopping) == 0 {
		return
	}
	c.park()
}

// park blocks the running thread for good.  It still holds the CPU so
// nothing else runs either.
func (c *CPU) park() {
	close(c.done)
	select {}
}

// Spurious counts interrupts that arrived on a line with no handler.
func (c *CPU) Spurious() int {
	return c.spurious
}
