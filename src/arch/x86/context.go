package x86

import "fmt"

// Kernel stacks are 8KiB each and grow down from the 8MiB line, one per
// process slot.
const (
	KernelStackBase = 0x0080_0000
	KernelStackSize = 0x2000
	KernelDS        = 0x0018
	BootStackTop    = 0x005F_FFFC
	UserStackTop    = 0x083F_FFFC
)

// SavedContext is the part of a kernel stack a halted process resumes at.
// ESP and EBP identify the frame, EIP is the user entry point.
type SavedContext struct {
	ESP uint32
	EBP uint32
	EIP uint32
}

func (s SavedContext) String() string {
	return fmt.Sprintf("esp=%08x ebp=%08x eip=%08x", s.ESP, s.EBP, s.EIP)
}

func (s SavedContext) sameFrame(o SavedContext) bool {
	return s.ESP == o.ESP && s.EBP == o.EBP
}

// TSS holds the only two fields of the task state segment the kernel uses:
// the stack loaded when user mode traps into the kernel.
type TSS struct {
	SS0  uint16
	ESP0 uint32
}

// ThreadStack is the bootstrap stack of the n-th spawned kernel thread.  They
// sit below the boot stack, inside the kernel's own 4MiB page.
func ThreadStack(n int) uint32 {
	return BootStackTop - uint32(KernelStackSize*(n+1))
}

// KernelStack is the initial esp0 for a process slot.
func KernelStack(slot int) uint32 {
	return uint32(KernelStackBase - KernelStackSize*slot - 4)
}

// Exception vectors we raise.
const (
	DivideError       = 0
	InvalidOpcode     = 6
	GeneralProtection = 13
	PageFault         = 14
)

var exceptionName = map[uint8]string{
	DivideError:       "Divide Error",
	InvalidOpcode:     "Invalid Opcode",
	GeneralProtection: "General Protection",
	PageFault:         "Page Fault",
}

// Page fault error code bits.
const (
	PFPresent = 0x1
	PFWrite   = 0x2
	PFUser    = 0x4
)

// Fault is a processor exception.  Code that touches memory through the page
// tables panics with a Fault; EnterUser turns it into a call to the fault
// handler.
type Fault struct {
	Vector uint8
	Code   uint32
	Addr   uint32
	Detail string
}

func (f Fault) Error() string {
	name, ok := exceptionName[f.Vector]
	if !ok {
		name = fmt.Sprintf("Exception %d", f.Vector)
	}
	if f.Vector == PageFault {
		return fmt.Sprintf("%s at %08x (code %x)", name, f.Addr, f.Code)
	}
	if f.Detail != "" {
		return name + ": " + f.Detail
	}
	return name
}
