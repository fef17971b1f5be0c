package joy

import (
	"serenity/src/arch/x86"
	"serenity/src/fdops"
	"serenity/src/lib/trust"
)

// Maximum number of families (processes) in the system, and what each can
// hold.
const (
	NumSlots       = 6
	NumDescriptors = 8
	MaxNameLength  = 32
	MaxArgLength   = 128
)

// NoSlot is the parent of a root shell and the child of a leaf.
const NoSlot = -1

// Descriptor is one entry of a process's file table.
type Descriptor struct {
	Driver fdops.Driver
	File   fdops.File
	InUse  bool
}

//
// Process is the control block for one running program.  Parent and
// Child are slot numbers: a terminal's processes form a chain from its root
// shell down to the one that is actually running (the leaf).
//
type Process struct {
	Slot     int
	Parent   int
	Child    int
	Context  x86.SavedContext
	Files    [NumDescriptors]Descriptor
	Name     string
	Args     string
	Terminal int
	Vidmap   bool
}

// Root reports whether p is a terminal's shell, which is never destroyed.
func (p *Process) Root() bool {
	return p.Parent == NoSlot
}

// ProcessTable is the fixed arena of process control blocks.
type ProcessTable struct {
	pool *ProcessFixedPool
	log  *trust.Logger
}

func NewProcessTable(logger *trust.Logger) *ProcessTable {
	return &ProcessTable{pool: NewProcessFixedPool(NumSlots), log: logger}
}

// Alloc takes the lowest free slot.  The new process has no parent, no child
// and no open files.
func (pt *ProcessTable) Alloc() (*Process, bool) {
	slot, p, ok := pt.pool.Alloc()
	if !ok {
		return nil, false
	}
	p.Slot = slot
	p.Parent = NoSlot
	p.Child = NoSlot
	pt.log.Debugf("process slot %d allocated (%d in use)", slot, pt.pool.Len())
	return p, true
}

func (pt *ProcessTable) Free(slot int) error {
	if !pt.pool.Free(slot) {
		return MakeError(ErrorFamilyNotRunning, slot)
	}
	pt.log.Debugf("process slot %d freed (%d in use)", slot, pt.pool.Len())
	return nil
}

func (pt *ProcessTable) Get(slot int) (*Process, bool) {
	return pt.pool.Get(slot)
}

// Count is the number of live processes.
func (pt *ProcessTable) Count() int {
	return pt.pool.Len()
}

// Leaf follows child links from root to the process at the bottom of the
// chain.  The walk is bounded by the number of slots so a broken chain
// cannot hang the scheduler; it returns NoSlot if root is not running.
func (pt *ProcessTable) Leaf(root int) int {
	p, ok := pt.Get(root)
	if !ok {
		return NoSlot
	}
	for i := 0; i < NumSlots && p.Child != NoSlot; i++ {
		c, ok := pt.Get(p.Child)
		if !ok || c.Parent != p.Slot {
			pt.log.Errorf("broken process chain at slot %d (child %d)", p.Slot, p.Child)
			break
		}
		p = c
	}
	return p.Slot
}
