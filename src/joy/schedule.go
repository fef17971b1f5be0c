package joy

import (
	"fmt"

	"serenity/src/arch/x86"
	"serenity/src/drivers/terminal"
	"serenity/src/hardware/i8259"
)

// TerminalState is how far along a terminal's shell is.
type TerminalState int

const (
	Uninitialized TerminalState = iota
	Bootstrapping
	Active
)

func (s TerminalState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Bootstrapping:
		return "bootstrapping"
	case Active:
		return "active"
	}
	return fmt.Sprintf("TerminalState(%d)", int(s))
}

// Action is what a timer tick does with the terminal whose turn it is.
type Action int

const (
	ActNone Action = iota
	ActBootstrap
	ActSwitch
)

// Decision is the result of one scheduling step.  Rehome means the display
// goes back to terminal 0 before the action.
type Decision struct {
	Terminal int
	Action   Action
	Rehome   bool
}

// NextDecision is the scheduling policy: terminals take turns in order, one
// per tick.  A terminal that was never started gets its shell started; one
// whose shell is running gets the CPU; one that is still starting is
// skipped.  A pending re-home gives the turn to terminal 0.
func NextDecision(tick uint64, states [terminal.Count]TerminalState, rehomePending bool) Decision {
	t := int(tick % terminal.Count)
	if rehomePending {
		t = 0
	}
	d := Decision{Terminal: t, Rehome: rehomePending}
	switch states[t] {
	case Uninitialized:
		d.Action = ActBootstrap
	case Active:
		d.Action = ActSwitch
	default:
		d.Action = ActNone
	}
	return d
}

type scheduler struct {
	tick    uint64
	states  [terminal.Count]TerminalState
	roots   [terminal.Count]int
	threads [terminal.Count]*x86.Thread
	rehome  bool
	// active is the terminal whose process chain holds the CPU
	active int
}

func (s *scheduler) init() {
	for t := range s.roots {
		s.roots[t] = NoSlot
	}
}

// started records terminal t's root shell.
func (s *scheduler) started(t int, slot int) {
	s.roots[t] = slot
	s.states[t] = Active
}

func (k *Kernel) timerTick() {
	k.pic.Acknowledge(i8259.TimerIRQ)
	k.schedule()
}

// schedule runs in the timer handler with interrupts disabled.
func (k *Kernel) schedule() {
	d := NextDecision(k.sched.tick, k.sched.states, k.sched.rehome)
	k.sched.tick++
	if d.Rehome {
		k.sched.rehome = false
		k.SwitchDisplay(0)
	}
	switch d.Action {
	case ActBootstrap:
		k.bootstrapTerminal(d.Terminal)
	case ActSwitch:
		k.switchToTerminal(d.Terminal)
	}
}

// bootstrapTerminal starts terminal t's shell on a fresh kernel thread.  The
// terminal is brought to the front first so the shell's first output is
// seen; once the last one is started the display goes home to terminal 0 on
// the next tick.
func (k *Kernel) bootstrapTerminal(t int) {
	k.sched.states[t] = Bootstrapping
	if t == terminal.Count-1 {
		k.sched.rehome = true
	}
	k.SwitchDisplay(t)
	k.sched.threads[t] = k.cpu.Spawn(fmt.Sprintf("terminal%d", t), x86.ThreadStack(t), func() {
		k.terminalMain(t)
	})
	k.log.Infof("starting %s on terminal %d", k.shell, t)
	k.current = NoSlot
	k.sched.active = t
	k.space.UnmapProcess()
	k.cpu.SwitchTo(k.sched.threads[t])
}

// terminalMain is the bottom of a terminal's kernel thread.  Execute of a
// root shell only comes back if the shell could not be started at all, in
// which case the terminal is left idle.
func (k *Kernel) terminalMain(t int) {
	status, err := k.Execute([]byte(k.shell))
	k.log.Errorf("terminal %d: cannot run %s: %v (status %d)", t, k.shell, err, status)
	k.console.Write(t, []byte("no shell\n"))
	k.cpu.EnableInterrupts()
	for {
		k.cpu.Hlt()
	}
}

// switchToTerminal gives the CPU to the process at the bottom of terminal
// t's chain, on that terminal's kernel thread.
func (k *Kernel) switchToTerminal(t int) {
	leaf := k.procs.Leaf(k.sched.roots[t])
	p, ok := k.procs.Get(leaf)
	if !ok {
		k.log.Errorf("terminal %d is active with no process", t)
		return
	}
	k.current = leaf
	k.sched.active = t
	k.space.MapProcess(leaf)
	k.retargetDisplayWindow(p)
	k.cpu.TSS.SS0 = x86.KernelDS
	k.cpu.TSS.ESP0 = x86.KernelStack(leaf)
	k.cpu.SwitchTo(k.sched.threads[t])
}

// retargetDisplayWindow points p's display window at wherever its terminal
// is drawn now, or takes it away if p never asked for it.
func (k *Kernel) retargetDisplayWindow(p *Process) {
	if p.Vidmap {
		k.space.MapDisplayWindow(k.console.DisplayAddr(p.Terminal))
	} else if k.space.DisplayWindowMapped() {
		k.space.UnmapDisplayWindow()
	}
}

// SwitchDisplay brings terminal t to the front.
func (k *Kernel) SwitchDisplay(t int) {
	prev := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(prev)
	if !k.console.Switch(t) {
		return
	}
	k.log.Debugf("terminal %d on screen", t)
	if p, ok := k.procs.Get(k.current); ok {
		k.retargetDisplayWindow(p)
	}
}

// TerminalStates is a copy of the scheduler's view of the terminals.
func (k *Kernel) TerminalStates() [terminal.Count]TerminalState {
	return k.sched.states
}

// Root is the slot of terminal t's shell, NoSlot if it has none.
func (k *Kernel) Root(t int) int {
	return k.sched.roots[t]
}

// Ticks is the number of timer ticks scheduled so far.
func (k *Kernel) Ticks() uint64 {
	return k.sched.tick
}
