package joy

import (
	"fmt"
	"sync"

	"serenity/src/arch/x86"
	"serenity/src/drivers/rofs"
	"serenity/src/drivers/rtc"
	"serenity/src/drivers/terminal"
	"serenity/src/hardware/i8259"
	"serenity/src/hardware/kbd"
	"serenity/src/hardware/pit"
	"serenity/src/hardware/ram"
	"serenity/src/hardware/vga"
	"serenity/src/lib/trust"
)

// MonitorIRQ is the line the host uses to run code on the kernel's CPU.
const MonitorIRQ = 5

// Config is everything the kernel is booted with.
type Config struct {
	FS       *rofs.FS
	Programs map[uint32]Program
	Shell    string
	// TimerHz of 0 leaves the PIT off; ticks then only come from Raise.
	TimerHz   int
	RTCBaseHz int
	// RTCClock runs a host clock raising the RTC line at RTCBaseHz.
	RTCClock bool
	Logger   *trust.Logger
}

type Kernel struct {
	log      *trust.Logger
	mem      *ram.Memory
	pic      *i8259.PIC
	cpu      *x86.CPU
	timer    *pit.PIT
	rtcClock *pit.PIT
	space    *AddressSpace
	procs    *ProcessTable
	fs       FileSystem
	drivers  Drivers
	console  *terminal.Console
	crtc     *vga.Controller
	rtc      *rtc.Driver
	keyboard *kbd.Queue
	programs map[uint32]Program
	shell    string
	timerHz  int
	rtcHz    int
	runRTC   bool
	gate     *gate

	current        int
	exceptionDeath bool
	sched          scheduler

	monitorMu sync.Mutex
	monitor   []monitorRequest
}

type monitorRequest struct {
	fn   func()
	done chan struct{}
}

// New wires up the machine and the kernel on top of it.  Nothing runs until
// Run.
func New(cfg Config) (*Kernel, error) {
	if cfg.FS == nil {
		return nil, fmt.Errorf("joy: no file system")
	}
	if cfg.Shell == "" {
		cfg.Shell = "shell"
	}
	if cfg.RTCBaseHz == 0 {
		cfg.RTCBaseHz = rtc.DefaultBaseHz
	}
	if cfg.Logger == nil {
		cfg.Logger = trust.Default()
	}
	k := &Kernel{
		log:      cfg.Logger,
		mem:      ram.New(),
		pic:      i8259.New(),
		crtc:     &vga.Controller{},
		fs:       cfg.FS,
		programs: cfg.Programs,
		shell:    cfg.Shell,
		timerHz:  cfg.TimerHz,
		rtcHz:    cfg.RTCBaseHz,
		runRTC:   cfg.RTCClock,
		current:  NoSlot,
	}
	k.cpu = x86.NewCPU(k.pic)
	k.timer = pit.New(k.pic, i8259.TimerIRQ)
	k.rtcClock = pit.New(k.pic, i8259.RTCIRQ)
	k.keyboard = kbd.New(k.pic, i8259.KeyboardIRQ)
	k.space = NewAddressSpace(k.mem)
	k.procs = NewProcessTable(k.log)
	k.console = terminal.NewConsole(k.mem, k.crtc)
	k.rtc = rtc.New(uint32(cfg.RTCBaseHz), k.cpu)
	k.drivers = Drivers{
		Stdin:     &terminal.StdinDriver{Console: k.console, Wait: k.cpu},
		Stdout:    &terminal.StdoutDriver{Console: k.console},
		RTC:       k.rtc,
		Directory: &rofs.DirectoryDriver{FS: cfg.FS},
		File:      &rofs.FileDriver{FS: cfg.FS},
	}
	k.gate = &gate{k: k}
	k.sched.init()

	k.cpu.Handle(i8259.TimerIRQ, k.timerTick)
	k.cpu.Handle(i8259.KeyboardIRQ, k.keyboardInterrupt)
	k.cpu.Handle(i8259.RTCIRQ, k.rtcInterrupt)
	k.cpu.Handle(MonitorIRQ, k.monitorInterrupt)
	k.cpu.SetTrapHandlers(k.Fault, k.programExit)
	return k, nil
}

// Run is the boot thread: it unmasks the devices, starts the clocks and
// idles.  The first timer tick starts terminal 0.  Run does not return.
func (k *Kernel) Run() {
	for _, line := range []int{i8259.TimerIRQ, i8259.KeyboardIRQ, i8259.RTCIRQ, MonitorIRQ} {
		k.pic.Enable(line)
	}
	if k.timerHz > 0 {
		if err := k.timer.Start(k.timerHz); err != nil {
			k.log.Errorf("timer: %v", err)
		}
	}
	if k.runRTC {
		if err := k.rtcClock.Start(k.rtcHz); err != nil {
			k.log.Errorf("rtc clock: %v", err)
		}
	}
	k.log.Infof("kernel up: %d slots, %d terminals, shell %q", NumSlots, terminal.Count, k.shell)
	k.cpu.EnableInterrupts()
	for {
		k.cpu.Hlt()
	}
}

// Stop halts the clocks and the CPU.  After Done is closed the kernel's
// state can be read from any goroutine.
func (k *Kernel) Stop() {
	k.timer.Stop()
	k.rtcClock.Stop()
	k.cpu.Stop()
}

func (k *Kernel) Done() <-chan struct{} {
	return k.cpu.Done()
}

// Do runs fn on the kernel's CPU at the next interrupt window and waits for
// it.  fn must not block.  It reports false if the kernel stopped first.
func (k *Kernel) Do(fn func()) bool {
	req := monitorRequest{fn: fn, done: make(chan struct{})}
	k.monitorMu.Lock()
	k.monitor = append(k.monitor, req)
	k.monitorMu.Unlock()
	k.pic.Raise(MonitorIRQ)
	select {
	case <-req.done:
		return true
	case <-k.cpu.Done():
		return false
	}
}

func (k *Kernel) monitorInterrupt() {
	k.monitorMu.Lock()
	reqs := k.monitor
	k.monitor = nil
	k.monitorMu.Unlock()
	for _, r := range reqs {
		r.fn()
		close(r.done)
	}
	k.pic.Acknowledge(MonitorIRQ)
}

// Raise asserts an interrupt line, as a device would.
func (k *Kernel) Raise(line int) {
	k.pic.Raise(line)
}

// Keyboard is where host key presses go.
func (k *Kernel) Keyboard() *kbd.Queue {
	return k.keyboard
}

func (k *Kernel) PIC() *i8259.PIC {
	return k.pic
}

func (k *Kernel) CPU() *x86.CPU {
	return k.cpu
}

func (k *Kernel) Console() *terminal.Console {
	return k.console
}

func (k *Kernel) Space() *AddressSpace {
	return k.space
}

func (k *Kernel) Processes() *ProcessTable {
	return k.procs
}

func (k *Kernel) Memory() *ram.Memory {
	return k.mem
}

// Current is the slot of the running process, NoSlot if none.
func (k *Kernel) Current() int {
	return k.current
}

// Cursor is the hardware cursor position.
func (k *Kernel) Cursor() vga.Cursor {
	return k.crtc.Cursor()
}
