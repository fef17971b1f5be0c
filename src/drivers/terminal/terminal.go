// Package terminal is the line discipline for the three virtual consoles.
// Each terminal keeps a line buffer and a text screen; the foreground
// terminal's screen is video memory, the others draw into their own backing
// page until they are switched in.
package terminal

import (
	"serenity/src/hardware/ram"
	"serenity/src/hardware/vga"
)

const (
	Count      = 3
	BufferSize = 128
	// room is left for the newline
	maxLine     = BufferSize - 2
	BackingBase = 0xB9000
)

const (
	keyEsc       = 0x1b
	keyCtrlL     = 0x0c
	keyBackspace = 0x08
	keyDelete    = 0x7f
)

// BackingAddr is the physical page holding terminal t's screen while it is
// in the background.
func BackingAddr(t int) uint32 {
	return BackingBase + uint32(t)*ram.FrameSize
}

type Terminal struct {
	ID      int
	line    [BufferSize]byte
	n       int
	ready   bool
	text    *vga.Text
	backing []byte
}

// LineReady reports whether a complete line is waiting to be read.
func (t *Terminal) LineReady() bool {
	return t.ready
}

func (t *Terminal) Cursor() vga.Cursor {
	return t.text.Cursor
}

type escState int

const (
	escNone escState = iota
	escStart
	escSS3
)

// Console owns the terminals, video memory and the hardware cursor.
type Console struct {
	terms      [Count]*Terminal
	video      []byte
	crtc       *vga.Controller
	foreground int
	esc        escState
}

func NewConsole(mem *ram.Memory, crtc *vga.Controller) *Console {
	c := &Console{
		video: mem.Slice(vga.PhysAddr, vga.Size),
		crtc:  crtc,
	}
	for i := range c.terms {
		t := &Terminal{ID: i, backing: mem.Slice(BackingAddr(i), vga.Size)}
		t.text = vga.NewText(t.backing)
		t.text.Clear()
		c.terms[i] = t
	}
	c.terms[0].text.Retarget(c.video)
	c.terms[0].text.Clear()
	c.crtc.SetCursor(vga.Cursor{})
	return c
}

func (c *Console) Terminal(t int) *Terminal {
	return c.terms[t]
}

func (c *Console) Foreground() int {
	return c.foreground
}

// Video is the text memory currently on screen.
func (c *Console) Video() []byte {
	return c.video
}

// DisplayAddr is where terminal t's screen lives right now.
func (c *Console) DisplayAddr(t int) uint32 {
	if t == c.foreground {
		return vga.PhysAddr
	}
	return BackingAddr(t)
}

// Switch puts terminal t on screen: video memory is saved into the outgoing
// terminal's backing page and the incoming one's is copied in.  It reports
// false if t is already in front or out of range.
func (c *Console) Switch(t int) bool {
	if t < 0 || t >= Count || t == c.foreground {
		return false
	}
	out, in := c.terms[c.foreground], c.terms[t]
	copy(out.backing, c.video)
	out.text.Retarget(out.backing)
	copy(c.video, in.backing)
	in.text.Retarget(c.video)
	c.foreground = t
	c.crtc.SetCursor(in.text.Cursor)
	return true
}

// Key feeds one byte from the keyboard to the foreground terminal.  It
// returns the terminal to switch to for Alt+1..3 (or F1..F3), else -1.
func (c *Console) Key(b byte) int {
	switch c.esc {
	case escStart:
		c.esc = escNone
		switch {
		case b >= '1' && b <= '0'+Count:
			return int(b - '1')
		case b == 'O':
			c.esc = escSS3
		}
		return -1
	case escSS3:
		c.esc = escNone
		if b >= 'P' && b < 'P'+Count {
			return int(b - 'P')
		}
		return -1
	}

	t := c.terms[c.foreground]
	switch {
	case b == keyEsc:
		c.esc = escStart
	case b == keyCtrlL:
		t.text.Clear()
	case b == keyBackspace || b == keyDelete:
		if t.n > 0 && !t.ready {
			t.n--
			t.text.Backspace()
		}
	case b == '\r' || b == '\n':
		if !t.ready {
			t.line[t.n] = '\n'
			t.n++
			t.ready = true
			t.text.Putc('\n')
		}
	case b == '\t' || (b >= 0x20 && b < 0x7f):
		if !t.ready && t.n < maxLine {
			t.line[t.n] = b
			t.n++
			t.text.Putc(b)
		}
	}
	c.crtc.SetCursor(t.text.Cursor)
	return -1
}

// ReadLine takes the pending line of terminal t, up to len(buf) bytes
// including the newline.  ok is false if no line is ready.
func (c *Console) ReadLine(t int, buf []byte) (int, bool) {
	term := c.terms[t]
	if !term.ready {
		return 0, false
	}
	n := copy(buf, term.line[:term.n])
	term.line = [BufferSize]byte{}
	term.n = 0
	term.ready = false
	return n, true
}

// Write draws buf on terminal t's screen and returns the number of bytes
// written, not counting newlines.
func (c *Console) Write(t int, buf []byte) int {
	term := c.terms[t]
	count := 0
	for _, b := range buf {
		term.text.Putc(b)
		if b != '\n' {
			count++
		}
	}
	if t == c.foreground {
		c.crtc.SetCursor(term.text.Cursor)
	}
	return count
}

// Screen is terminal t's screen contents as text.
func (c *Console) Screen(t int) string {
	return vga.Screen(c.terms[t].text.Memory())
}
