package joy

import (
	"serenity/src/arch/x86"
	"serenity/src/drivers/rofs"
	"serenity/src/lib/loader"
)

// ExceptionStatus is what a parent's execute returns when the child was
// killed by a processor exception.
const ExceptionStatus = 256

const (
	msgMaxPrograms = "Max programs reached, only valid command: exit\n"
	msgFinalShell  = "Halting final shell is not allowed\n"
)

// parseCommand splits a command line into the program name and its
// argument.  Leading spaces are skipped before each; the name ends at a
// space, newline or NUL and the argument runs to newline or NUL, keeping
// trailing spaces.  Arguments longer than MaxArgLength are cut short.  An
// empty name with a nil error means the line was blank.
func parseCommand(cmd []byte) (name, arg string, err error) {
	i := 0
	for i < len(cmd) && cmd[i] == ' ' {
		i++
	}
	start := i
	for i < len(cmd) && cmd[i] != ' ' && cmd[i] != '\n' && cmd[i] != 0 {
		i++
	}
	if i-start > MaxNameLength {
		return "", "", ErrorExecInvalidArgument
	}
	name = string(cmd[start:i])
	for i < len(cmd) && cmd[i] == ' ' {
		i++
	}
	start = i
	for i < len(cmd) && cmd[i] != '\n' && cmd[i] != 0 {
		i++
	}
	if i-start > MaxArgLength {
		i = start + MaxArgLength
	}
	arg = string(cmd[start:i])
	return name, arg, nil
}

// running is the process that made the current system call.
func (k *Kernel) running() (*Process, error) {
	p, ok := k.procs.Get(k.current)
	if !ok {
		return nil, MakeError(ErrorFamilyNotRunning, k.current)
	}
	return p, nil
}

// Execute runs the program named by the first word of command as a child of
// the running process and returns its halt status once it is done.  With no
// running process the new one is the root shell of the terminal being
// started.
func (k *Kernel) Execute(command []byte) (int32, error) {
	caller := k.current
	parent, hasParent := k.procs.Get(caller)

	name, arg, err := parseCommand(command)
	if err != nil {
		return -1, MakeError(ErrorExecInvalidArgument, caller)
	}
	if name == "" {
		return 0, nil
	}
	d, err := k.fs.LookupByName(name)
	if err != nil {
		return -1, MakeError(ErrorExecNotFound, caller)
	}
	if d.Type != rofs.TypeFile {
		return -1, MakeError(ErrorExecNotExecutable, caller)
	}
	var header [loader.HeaderSize]byte
	n, err := k.fs.ReadData(d.Inode, 0, header[:])
	if err != nil {
		return -1, MakeError(ErrorExecNotExecutable, caller)
	}
	if _, lerr := loader.CheckHeader(header[:n]); lerr != loader.LoaderNoError {
		return -1, MakeError(ErrorExecNotExecutable, caller)
	}

	term := k.sched.active
	if hasParent {
		term = parent.Terminal
	}

	prevIF := k.cpu.DisableInterrupts()
	p, ok := k.procs.Alloc()
	if !ok {
		k.cpu.RestoreInterrupts(prevIF)
		k.console.Write(term, []byte(msgMaxPrograms))
		return -1, MakeError(ErrorFamilyNoMoreFamilies, caller)
	}
	k.space.MapProcess(p.Slot)
	info := loader.NewUserProcStartupInfo(name, d.Inode)
	if lerr := info.Load(k.log, k.fs, k.space); lerr != loader.LoaderNoError {
		k.log.Errorf("exec %s: %v", name, lerr)
		_ = k.procs.Free(p.Slot)
		if hasParent {
			k.space.MapProcess(parent.Slot)
		} else {
			k.space.UnmapProcess()
		}
		k.cpu.RestoreInterrupts(prevIF)
		return -1, MakeError(ErrorExecLoadFailed, caller)
	}

	p.Parent = caller
	p.Name = name
	p.Args = arg
	p.Terminal = term
	p.Vidmap = false
	p.Context = x86.SavedContext{ESP: k.cpu.ESP(), EBP: k.cpu.EBP(), EIP: info.EntryPoint}
	k.installConsole(p)
	if hasParent {
		parent.Child = p.Slot
	} else {
		k.sched.started(term, p.Slot)
	}
	if k.space.DisplayWindowMapped() {
		k.space.UnmapDisplayWindow()
	}
	k.current = p.Slot
	k.cpu.TSS.SS0 = x86.KernelDS
	k.cpu.TSS.ESP0 = x86.KernelStack(p.Slot)
	k.log.Debugf("exec %q arg %q in slot %d on terminal %d (parent %d)", name, arg, p.Slot, term, caller)
	k.cpu.RestoreInterrupts(prevIF)

	entry := info.EntryPoint
	status := k.cpu.EnterUser(p.Context, func() { k.runProgram(entry) })
	return status, nil
}

func (k *Kernel) runProgram(entry uint32) {
	prog, ok := k.programs[entry]
	if !ok {
		panic(x86.Fault{Vector: x86.InvalidOpcode, Addr: entry, Detail: "no program at entry point"})
	}
	prog(k.gate)
}

// Halt ends the running process and returns status to its parent's
// execute.  A terminal's root shell is never destroyed: it is started
// again from its entry point with its descriptors and display window left
// as they were.  Halt does not return.
func (k *Kernel) Halt(status uint8) {
	p, err := k.running()
	if err != nil {
		panic("halt with no running process")
	}
	k.cpu.DisableInterrupts()

	if p.Root() {
		k.console.Write(p.Terminal, []byte(msgFinalShell))
		k.exceptionDeath = false
		k.log.Debugf("restarting %s in slot %d", p.Name, p.Slot)
		k.cpu.Restart(p.Context)
	}

	if k.space.DisplayWindowMapped() {
		k.space.UnmapDisplayWindow()
	}
	k.closeAll(p)

	parent, ok := k.procs.Get(p.Parent)
	if !ok {
		panic("halt: parent of slot " + p.Name + " is gone")
	}
	parent.Child = NoSlot
	k.space.MapProcess(parent.Slot)
	if parent.Vidmap {
		k.space.MapDisplayWindow(k.console.DisplayAddr(parent.Terminal))
	}
	ctx := p.Context
	slot := p.Slot
	if err := k.procs.Free(slot); err != nil {
		k.log.Errorf("halt: %v", err)
	}
	k.current = parent.Slot
	k.cpu.TSS.ESP0 = x86.KernelStack(parent.Slot)

	ret := int32(status)
	if k.exceptionDeath {
		k.exceptionDeath = false
		ret = ExceptionStatus
	}
	k.log.Debugf("slot %d halted with %d, back to slot %d", slot, ret, parent.Slot)
	k.cpu.Resume(ctx, ret)
}

// Open, Close, Read and Write act on the running process's file table.
func (k *Kernel) Open(name string) (int, error) {
	p, err := k.running()
	if err != nil {
		return -1, err
	}
	return k.openFile(p, name)
}

func (k *Kernel) Close(fd int) error {
	p, err := k.running()
	if err != nil {
		return err
	}
	return k.closeFile(p, fd)
}

func (k *Kernel) Read(fd int, buf []byte) (int, error) {
	p, err := k.running()
	if err != nil {
		return -1, err
	}
	return k.readFile(p, fd, buf)
}

func (k *Kernel) Write(fd int, buf []byte) (int, error) {
	p, err := k.running()
	if err != nil {
		return -1, err
	}
	return k.writeFile(p, fd, buf)
}

// GetArgs copies the running process's argument, NUL terminated, into buf.
// It fails if there is no argument or it does not fit with its terminator.
func (k *Kernel) GetArgs(buf []byte) error {
	p, err := k.running()
	if err != nil {
		return err
	}
	if len(p.Args) == 0 || len(p.Args)+1 > len(buf) {
		return MakeError(ErrorExecInvalidArgument, p.Slot)
	}
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, p.Args)
	return nil
}

// Vidmap maps the display window for the running process and stores its
// address at dst, which must be a word in the user page other than the
// image's load address.
func (k *Kernel) Vidmap(dst uint32) error {
	p, err := k.running()
	if err != nil {
		return err
	}
	if dst == 0 || dst < loader.UserProcessBase || dst > loader.UserProcessEnd-4 || dst == loader.UserProcessLinkAddr {
		return MakeError(ErrorMemoryBadPageRequest, p.Slot)
	}
	prev := k.cpu.DisableInterrupts()
	k.space.MapDisplayWindow(k.console.DisplayAddr(p.Terminal))
	p.Vidmap = true
	k.cpu.RestoreInterrupts(prev)
	k.space.StoreWord(dst, loader.UserVideoAddr)
	return nil
}
