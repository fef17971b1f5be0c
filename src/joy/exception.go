package joy

import (
	"serenity/src/arch/x86"
)

// Fault is the processor exception handler for user mode.  The faulting
// process is killed: its parent's execute returns ExceptionStatus.
func (k *Kernel) Fault(f x86.Fault) {
	p, err := k.running()
	if err != nil {
		panic("exception with no running process: " + f.Error())
	}
	k.log.Warnf("slot %d (%s) killed: %v", p.Slot, p.Name, f)
	k.Logf(p.Terminal, "%s\n", f.Error())
	k.exceptionDeath = true
	k.Halt(0)
}

// programExit is where a program that returns instead of halting ends up.
func (k *Kernel) programExit() {
	k.Halt(0)
}
