package vga

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestPutcWrapsAndScrolls(t *testing.T) {
	mem := make([]byte, Size)
	txt := NewText(mem)
	txt.Clear()
	txt.Write([]byte("391OS> "))
	if txt.X != 7 || txt.Y != 0 {
		t.Errorf("cursor at %v", txt.Cursor)
	}
	txt.Write([]byte(strings.Repeat("x", Columns)))
	if txt.Y != 1 || txt.X != 7 {
		t.Errorf("wrap left cursor at %v", txt.Cursor)
	}
	for i := 0; i < Rows; i++ {
		txt.Write([]byte("line\n"))
	}
	if txt.Y != Rows-1 || txt.X != 0 {
		t.Errorf("scroll left cursor at %v", txt.Cursor)
	}
	if Row(mem, Rows-2) != "line" || Row(mem, Rows-1) != "" {
		t.Errorf("bottom rows %q %q", Row(mem, Rows-2), Row(mem, Rows-1))
	}
}

func TestBackspace(t *testing.T) {
	mem := make([]byte, Size)
	txt := NewText(mem)
	txt.Clear()
	txt.Backspace()
	if txt.X != 0 || txt.Y != 0 {
		t.Errorf("backspace at origin moved the cursor")
	}
	txt.Write([]byte("ab\nc"))
	txt.Backspace()
	txt.Backspace()
	if txt.Y != 0 || txt.X != Columns-1 {
		t.Errorf("backspace did not go back a line: %v", txt.Cursor)
	}
	if Screen(mem) != "ab" {
		t.Errorf("screen %q", Screen(mem))
	}
}

func TestRetargetKeepsCursor(t *testing.T) {
	a, b := make([]byte, Size), make([]byte, Size)
	txt := NewText(a)
	txt.Clear()
	txt.Write([]byte("one"))
	txt.Retarget(b)
	txt.Write([]byte("two"))
	if Row(b, 0) != "   two" {
		t.Errorf("second buffer row %q", Row(b, 0))
	}
	if Row(a, 0) != "one" {
		t.Errorf("first buffer row %q", Row(a, 0))
	}
}

func TestRenderPNG(t *testing.T) {
	mem := make([]byte, Size)
	txt := NewText(mem)
	txt.Clear()
	txt.Write([]byte("hello"))
	var buf bytes.Buffer
	if err := WritePNG(&buf, mem, txt.Cursor); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != Columns*7 || img.Bounds().Dy() != Rows*13 {
		t.Errorf("image size %v", img.Bounds())
	}
	// some pixel in the first cell is lit by the 'h'
	lit := false
	for y := 0; y < 13 && !lit; y++ {
		for x := 0; x < 7; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r != 0 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Errorf("no glyph drawn in the first cell")
	}
}
