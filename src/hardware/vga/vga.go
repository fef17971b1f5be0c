// Package vga is 80x25 color text mode: two bytes per cell, character then
// attribute, at physical 0xB8000.
package vga

import (
	"strings"
)

const (
	Columns   = 80
	Rows      = 25
	Size      = Columns * Rows * 2
	PhysAddr  = 0xB8000
	Attribute = 0x07
)

// Cursor is a cell position.
type Cursor struct {
	X int
	Y int
}

// Text draws characters into a text-mode buffer.  The buffer may be video
// memory or a terminal's saved copy; Retarget switches between them without
// moving the cursor.
type Text struct {
	mem []byte
	Cursor
}

// NewText draws into mem, which must hold at least Size bytes.
func NewText(mem []byte) *Text {
	if len(mem) < Size {
		panic("vga: text buffer too small")
	}
	return &Text{mem: mem[:Size]}
}

func (t *Text) Retarget(mem []byte) {
	if len(mem) < Size {
		panic("vga: text buffer too small")
	}
	t.mem = mem[:Size]
}

func (t *Text) Memory() []byte {
	return t.mem
}

// Putc writes c at the cursor and advances it, wrapping at the right edge
// and scrolling at the bottom.
func (t *Text) Putc(c byte) {
	switch c {
	case '\n', '\r':
		t.X = 0
		t.Y++
	default:
		i := (t.Y*Columns + t.X) * 2
		t.mem[i] = c
		t.mem[i+1] = Attribute
		t.X++
		if t.X == Columns {
			t.X = 0
			t.Y++
		}
	}
	if t.Y == Rows {
		t.scroll()
		t.Y = Rows - 1
	}
}

func (t *Text) Write(p []byte) (int, error) {
	for _, c := range p {
		t.Putc(c)
	}
	return len(p), nil
}

// Backspace moves back one cell, onto the previous line if needed, and blanks
// it.
func (t *Text) Backspace() {
	if t.X == 0 && t.Y == 0 {
		return
	}
	if t.X == 0 {
		t.X = Columns - 1
		t.Y--
	} else {
		t.X--
	}
	i := (t.Y*Columns + t.X) * 2
	t.mem[i] = ' '
	t.mem[i+1] = Attribute
}

func (t *Text) Clear() {
	for i := 0; i < Size; i += 2 {
		t.mem[i] = ' '
		t.mem[i+1] = Attribute
	}
	t.X, t.Y = 0, 0
}

func (t *Text) scroll() {
	copy(t.mem, t.mem[Columns*2:])
	for i := (Rows - 1) * Columns * 2; i < Size; i += 2 {
		t.mem[i] = ' '
		t.mem[i+1] = Attribute
	}
}

// Row returns line y with trailing blanks dropped.
func Row(mem []byte, y int) string {
	var b strings.Builder
	for x := 0; x < Columns; x++ {
		c := mem[(y*Columns+x)*2]
		if c == 0 {
			c = ' '
		}
		b.WriteByte(c)
	}
	return strings.TrimRight(b.String(), " ")
}

// Screen returns all rows joined by newlines, trailing empty rows dropped.
func Screen(mem []byte) string {
	lines := make([]string, Rows)
	for y := 0; y < Rows; y++ {
		lines[y] = Row(mem, y)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// Controller is the CRT controller's cursor location register.
type Controller struct {
	cursor Cursor
}

func (c *Controller) SetCursor(pos Cursor) {
	c.cursor = pos
}

func (c *Controller) Cursor() Cursor {
	return c.cursor
}
