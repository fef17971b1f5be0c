package joy

import (
	"bytes"
	"testing"

	"serenity/src/lib/trust"
)

func TestProcessTableAlloc(t *testing.T) {
	pt := NewProcessTable(trust.NewLogger(&bytes.Buffer{}))
	for i := 0; i < NumSlots; i++ {
		p, ok := pt.Alloc()
		if !ok || p.Slot != i || p.Parent != NoSlot || p.Child != NoSlot {
			t.Fatalf("alloc %d: %+v %v", i, p, ok)
		}
	}
	if _, ok := pt.Alloc(); ok {
		t.Fatalf("seventh alloc succeeded")
	}
	if err := pt.Free(2); err != nil {
		t.Fatal(err)
	}
	if err := pt.Free(2); err == nil {
		t.Errorf("double free succeeded")
	}
	p, ok := pt.Alloc()
	if !ok || p.Slot != 2 {
		t.Errorf("reused slot %d", p.Slot)
	}
	if pt.Count() != NumSlots {
		t.Errorf("count %d", pt.Count())
	}
}

func TestLeaf(t *testing.T) {
	pt := NewProcessTable(trust.NewLogger(&bytes.Buffer{}))
	root, _ := pt.Alloc()
	mid, _ := pt.Alloc()
	leaf, _ := pt.Alloc()
	root.Child, mid.Parent = mid.Slot, root.Slot
	mid.Child, leaf.Parent = leaf.Slot, mid.Slot
	if got := pt.Leaf(root.Slot); got != leaf.Slot {
		t.Errorf("leaf %d", got)
	}
	if got := pt.Leaf(5); got != NoSlot {
		t.Errorf("leaf of a free slot: %d", got)
	}
	// a cycle must not hang the walk
	leaf.Child, root.Parent = root.Slot, leaf.Slot
	pt.Leaf(root.Slot)
	if mid.Root() {
		t.Errorf("slot %d has a parent", mid.Slot)
	}
}
