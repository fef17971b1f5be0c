package joy

import (
	"testing"

	"serenity/src/arch/x86"
	"serenity/src/hardware/ram"
	"serenity/src/hardware/vga"
	"serenity/src/lib/loader"
)

// mustFault runs fn and returns the page fault it raised.
func mustFault(t *testing.T, fn func()) (f x86.Fault) {
	t.Helper()
	defer func() {
		r := recover()
		var ok bool
		if f, ok = r.(x86.Fault); !ok {
			t.Fatalf("expected a fault, got %v", r)
		}
	}()
	fn()
	return
}

func TestProcessMapping(t *testing.T) {
	as := NewAddressSpace(ram.New())
	as.MapProcess(2)
	if got := as.Translate(loader.UserProcessLinkAddr, true, true); got != loader.UserProcessPhys(2)+0x48000 {
		t.Errorf("slot 2 maps to %x", got)
	}
	before := as.Flushes()
	as.MapProcess(3)
	if as.Flushes() != before+1 {
		t.Errorf("remap did not flush")
	}
	// a stale TLB entry would still point at slot 2
	if got := as.Translate(loader.UserProcessLinkAddr, false, true); got != loader.UserProcessPhys(3)+0x48000 {
		t.Errorf("slot 3 maps to %x", got)
	}
	if base, ok := as.MappedProcess(); !ok || base != 0x800000+3*0x400000 {
		t.Errorf("mapped %x %v", base, ok)
	}
	as.UnmapProcess()
	f := mustFault(t, func() { as.Translate(loader.UserProcessLinkAddr, false, true) })
	if f.Vector != x86.PageFault || f.Code != x86.PFUser {
		t.Errorf("unmapped read: %+v", f)
	}
}

func TestKernelPagesAreSupervisor(t *testing.T) {
	as := NewAddressSpace(ram.New())
	if got := as.Translate(0x400123, true, false); got != 0x400123 {
		t.Errorf("kernel page at %x", got)
	}
	f := mustFault(t, func() { as.Translate(0x400000, false, true) })
	if f.Code != x86.PFPresent|x86.PFUser {
		t.Errorf("user read of kernel: code %x", f.Code)
	}
	f = mustFault(t, func() { as.Store(vga.PhysAddr, []byte{1}) })
	if f.Code != x86.PFPresent|x86.PFWrite|x86.PFUser {
		t.Errorf("user write of video memory: code %x", f.Code)
	}
	mustFault(t, func() { as.Translate(0, false, false) })
}

func TestDisplayWindow(t *testing.T) {
	mem := ram.New()
	as := NewAddressSpace(mem)
	if as.DisplayWindowMapped() {
		t.Fatal("window mapped at boot")
	}
	as.MapDisplayWindow(vga.PhysAddr)
	as.Store(loader.UserVideoAddr+2, []byte{'A'})
	if mem.Frame(vga.PhysAddr)[2] != 'A' {
		t.Errorf("store did not reach video memory")
	}
	as.MapDisplayWindow(0xB9000)
	if got := as.Translate(loader.UserVideoAddr+8, false, true); got != 0xB9008 {
		t.Errorf("retargeted window at %x", got)
	}
	mustFault(t, func() { as.Translate(loader.UserVideoAddr+0x1000, false, true) })
	as.UnmapDisplayWindow()
	mustFault(t, func() { as.Translate(loader.UserVideoAddr, false, true) })
}

func TestWordsCrossFrames(t *testing.T) {
	as := NewAddressSpace(ram.New())
	as.MapProcess(0)
	addr := uint32(loader.UserProcessBase + 0x1ffe)
	as.StoreWord(addr, 0xdeadbeef)
	if got := as.LoadWord(addr); got != 0xdeadbeef {
		t.Errorf("read back %x", got)
	}
	as.StoreBytes(loader.UserProcessLinkAddr, []byte("image"))
	buf := make([]byte, 5)
	as.Load(loader.UserProcessLinkAddr, buf)
	if string(buf) != "image" {
		t.Errorf("loaded %q", buf)
	}
}
