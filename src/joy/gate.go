package joy

import (
	"bytes"
)

// Syscalls is the system call interface as a user program sees it.  Every
// call returns -1 on any error; Halt does not return.
type Syscalls interface {
	Execute(command []byte) int32
	Halt(status uint8)
	Open(filename []byte) int32
	Close(fd int32) int32
	Read(fd int32, buf []byte) int32
	Write(fd int32, buf []byte) int32
	GetArgs(buf []byte) int32
	Vidmap(screenStart uint32) int32
}

// Memory is user mode access to the address space.  An access the page
// tables do not allow is a page fault, which kills the program.
type Memory interface {
	LoadByte(vaddr uint32) byte
	StoreByte(vaddr uint32, b byte)
	LoadWord(vaddr uint32) uint32
	StoreWord(vaddr uint32, v uint32)
	Load(vaddr uint32, buf []byte)
	Store(vaddr uint32, data []byte)
}

// User is everything a program can touch.
type User interface {
	Syscalls
	Memory
}

// Program is the code of a user program, found by its image's entry point.
// Returning is the same as halting with status 0.
type Program func(u User)

// gate is the int 0x80 boundary.  Each entry is an instruction boundary
// where pending interrupts are taken.
type gate struct {
	k *Kernel
}

func (g *gate) enter() {
	g.k.cpu.Poll()
}

func (g *gate) result(call string, n int, err error) int32 {
	if err != nil {
		g.k.log.Debugf("slot %d: %s: %v", g.k.current, call, err)
		return -1
	}
	return int32(n)
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (g *gate) Execute(command []byte) int32 {
	g.enter()
	status, err := g.k.Execute(command)
	return g.result("execute", int(status), err)
}

func (g *gate) Halt(status uint8) {
	g.enter()
	g.k.Halt(status)
}

func (g *gate) Open(filename []byte) int32 {
	g.enter()
	fd, err := g.k.Open(cstring(filename))
	return g.result("open", fd, err)
}

func (g *gate) Close(fd int32) int32 {
	g.enter()
	return g.result("close", 0, g.k.Close(int(fd)))
}

func (g *gate) Read(fd int32, buf []byte) int32 {
	g.enter()
	n, err := g.k.Read(int(fd), buf)
	return g.result("read", n, err)
}

func (g *gate) Write(fd int32, buf []byte) int32 {
	g.enter()
	n, err := g.k.Write(int(fd), buf)
	return g.result("write", n, err)
}

func (g *gate) GetArgs(buf []byte) int32 {
	g.enter()
	return g.result("getargs", 0, g.k.GetArgs(buf))
}

func (g *gate) Vidmap(screenStart uint32) int32 {
	g.enter()
	return g.result("vidmap", 0, g.k.Vidmap(screenStart))
}

func (g *gate) LoadByte(vaddr uint32) byte {
	g.enter()
	var b [1]byte
	g.k.space.Load(vaddr, b[:])
	return b[0]
}

func (g *gate) StoreByte(vaddr uint32, b byte) {
	g.enter()
	g.k.space.Store(vaddr, []byte{b})
}

func (g *gate) LoadWord(vaddr uint32) uint32 {
	g.enter()
	return g.k.space.LoadWord(vaddr)
}

func (g *gate) StoreWord(vaddr uint32, v uint32) {
	g.enter()
	g.k.space.StoreWord(vaddr, v)
}

func (g *gate) Load(vaddr uint32, buf []byte) {
	g.enter()
	g.k.space.Load(vaddr, buf)
}

func (g *gate) Store(vaddr uint32, data []byte) {
	g.enter()
	g.k.space.Store(vaddr, data)
}
