package joy

import (
	"encoding/binary"

	"serenity/src/arch/x86"
	"serenity/src/hardware/ram"
	"serenity/src/hardware/vga"
	"serenity/src/lib/loader"
)

// Page directory and table entry flags.
const (
	PagePresent = 0x001
	PageRW      = 0x002
	PageUser    = 0x004
	Page4M      = 0x080
)

const (
	numEntries  = 1024
	kernelStart = 0x0040_0000
	userPDE     = loader.UserProcessBase >> 22
	videoPDE    = loader.UserVideoAddr >> 22

	// the two 4KB tables live in the kernel's page like the directory does
	kernelTableAddr = 0x0040_1000
	videoTableAddr  = 0x0040_2000
)

// AddressSpace is the single page directory every process runs under.
// A switch between processes rewrites the user slot entry in place; every
// change flushes the TLB.
type AddressSpace struct {
	mem         *ram.Memory
	dir         [numEntries]uint32
	kernelTable [numEntries]uint32
	videoTable  [numEntries]uint32
	tlb         map[uint32]uint32
	flushes     int
}

// NewAddressSpace builds the boot mappings: the first 4MB through a 4KB
// table with only the text-mode pages present, and the kernel as one 4MB
// supervisor page.
func NewAddressSpace(mem *ram.Memory) *AddressSpace {
	as := &AddressSpace{mem: mem, tlb: make(map[uint32]uint32)}
	for p := uint32(vga.PhysAddr); p < vga.PhysAddr+4*ram.FrameSize; p += ram.FrameSize {
		// video memory and the three terminal backing pages
		as.kernelTable[p>>12] = p | PageRW | PagePresent
	}
	as.dir[0] = kernelTableAddr | PageRW | PagePresent
	as.dir[kernelStart>>22] = kernelStart | Page4M | PageRW | PagePresent
	return as
}

func (as *AddressSpace) FlushTLB() {
	as.tlb = make(map[uint32]uint32)
	as.flushes++
}

// Flushes counts TLB flushes.
func (as *AddressSpace) Flushes() int {
	return as.flushes
}

// MapProcess points the 4MB user page at slot's physical memory.
func (as *AddressSpace) MapProcess(slot int) {
	as.dir[userPDE] = loader.UserProcessPhys(slot) | Page4M | PageUser | PageRW | PagePresent
	as.FlushTLB()
}

func (as *AddressSpace) UnmapProcess() {
	as.dir[userPDE] = 0
	as.FlushTLB()
}

// MappedProcess is the physical base of the user page, if one is mapped.
func (as *AddressSpace) MappedProcess() (uint32, bool) {
	pde := as.dir[userPDE]
	return pde &^ 0x3f_ffff, pde&PagePresent != 0
}

// MapDisplayWindow makes the 4KB page at phys visible to user mode at
// UserVideoAddr.
func (as *AddressSpace) MapDisplayWindow(phys uint32) {
	as.videoTable[0] = phys&^0xfff | PageUser | PageRW | PagePresent
	as.dir[videoPDE] = videoTableAddr | PageUser | PageRW | PagePresent
	as.FlushTLB()
}

func (as *AddressSpace) UnmapDisplayWindow() {
	as.videoTable[0] = 0
	as.dir[videoPDE] = 0
	as.FlushTLB()
}

func (as *AddressSpace) DisplayWindowMapped() bool {
	return as.dir[videoPDE]&PagePresent != 0
}

func (as *AddressSpace) table(addr uint32) *[numEntries]uint32 {
	switch addr {
	case kernelTableAddr:
		return &as.kernelTable
	case videoTableAddr:
		return &as.videoTable
	}
	return nil
}

func pageFault(vaddr uint32, write, user, present bool) x86.Fault {
	code := uint32(0)
	if present {
		code |= x86.PFPresent
	}
	if write {
		code |= x86.PFWrite
	}
	if user {
		code |= x86.PFUser
	}
	return x86.Fault{Vector: x86.PageFault, Addr: vaddr, Code: code}
}

// Translate maps vaddr to a physical address the way the MMU would, filling
// the TLB.  An access the tables do not allow panics with a page fault.
func (as *AddressSpace) Translate(vaddr uint32, write, user bool) uint32 {
	vpn := vaddr >> 12
	e, ok := as.tlb[vpn]
	if !ok {
		e = as.walk(vaddr, write, user)
		as.tlb[vpn] = e
	}
	if (user && e&PageUser == 0) || (write && e&PageRW == 0) {
		panic(pageFault(vaddr, write, user, true))
	}
	return e&^0xfff | vaddr&0xfff
}

func (as *AddressSpace) walk(vaddr uint32, write, user bool) uint32 {
	pde := as.dir[vaddr>>22]
	if pde&PagePresent == 0 {
		panic(pageFault(vaddr, write, user, false))
	}
	if pde&Page4M != 0 {
		phys := pde&^0x3f_ffff | vaddr&0x3f_f000
		return phys | pde&(PageUser|PageRW|PagePresent)
	}
	t := as.table(pde &^ 0xfff)
	if t == nil {
		panic(pageFault(vaddr, write, user, false))
	}
	pte := t[(vaddr>>12)&0x3ff]
	if pte&PagePresent == 0 {
		panic(pageFault(vaddr, write, user, false))
	}
	// both levels have to allow an access
	return pte&^0xfff | pde&pte&(PageUser|PageRW|PagePresent)
}

func (as *AddressSpace) copyPages(vaddr uint32, n int, write, user bool, fn func(phys uint32, lo, hi int)) {
	done := 0
	for done < n {
		phys := as.Translate(vaddr+uint32(done), write, user)
		chunk := ram.FrameSize - int(phys&(ram.FrameSize-1))
		if chunk > n-done {
			chunk = n - done
		}
		fn(phys, done, done+chunk)
		done += chunk
	}
}

// Load and Store copy bytes through the page tables as user mode.
func (as *AddressSpace) Load(vaddr uint32, buf []byte) {
	as.copyPages(vaddr, len(buf), false, true, func(phys uint32, lo, hi int) {
		as.mem.Read(phys, buf[lo:hi])
	})
}

func (as *AddressSpace) Store(vaddr uint32, data []byte) {
	as.copyPages(vaddr, len(data), true, true, func(phys uint32, lo, hi int) {
		as.mem.Write(phys, data[lo:hi])
	})
}

// StoreBytes writes as the kernel, for loading images.
func (as *AddressSpace) StoreBytes(vaddr uint32, data []byte) {
	as.copyPages(vaddr, len(data), true, false, func(phys uint32, lo, hi int) {
		as.mem.Write(phys, data[lo:hi])
	})
}

func (as *AddressSpace) LoadWord(vaddr uint32) uint32 {
	var b [4]byte
	as.Load(vaddr, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (as *AddressSpace) StoreWord(vaddr uint32, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	as.Store(vaddr, b[:])
}
