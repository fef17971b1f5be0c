// Package ram is physical memory: a 32 bit address space of 4KiB frames that
// exist once they are touched.
package ram

const (
	FrameSize  = 0x1000
	frameShift = 12
)

type Memory struct {
	frames map[uint32]*[FrameSize]byte
}

func New() *Memory {
	return &Memory{frames: make(map[uint32]*[FrameSize]byte)}
}

// Frame returns the whole 4KiB frame containing phys.  Writes through the
// slice are writes to memory.
func (m *Memory) Frame(phys uint32) []byte {
	n := phys >> frameShift
	f, ok := m.frames[n]
	if !ok {
		f = new([FrameSize]byte)
		m.frames[n] = f
	}
	return f[:]
}

// Slice returns length bytes at phys, which must not cross a frame boundary.
func (m *Memory) Slice(phys uint32, length int) []byte {
	off := int(phys & (FrameSize - 1))
	if off+length > FrameSize {
		panic("ram: slice crosses a frame boundary")
	}
	return m.Frame(phys)[off : off+length]
}

func (m *Memory) Read(phys uint32, buf []byte) {
	for len(buf) > 0 {
		off := phys & (FrameSize - 1)
		n := copy(buf, m.Frame(phys)[off:])
		buf = buf[n:]
		phys += uint32(n)
	}
}

func (m *Memory) Write(phys uint32, data []byte) {
	for len(data) > 0 {
		off := phys & (FrameSize - 1)
		n := copy(m.Frame(phys)[off:], data)
		data = data[n:]
		phys += uint32(n)
	}
}

// Frames is the number of frames that have been touched.
func (m *Memory) Frames() int {
	return len(m.frames)
}
