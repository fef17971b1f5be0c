package vga

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var palette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xff}, {0x00, 0x00, 0xaa, 0xff}, {0x00, 0xaa, 0x00, 0xff}, {0x00, 0xaa, 0xaa, 0xff},
	{0xaa, 0x00, 0x00, 0xff}, {0xaa, 0x00, 0xaa, 0xff}, {0xaa, 0x55, 0x00, 0xff}, {0xaa, 0xaa, 0xaa, 0xff},
	{0x55, 0x55, 0x55, 0xff}, {0x55, 0x55, 0xff, 0xff}, {0x55, 0xff, 0x55, 0xff}, {0x55, 0xff, 0xff, 0xff},
	{0xff, 0x55, 0x55, 0xff}, {0xff, 0x55, 0xff, 0xff}, {0xff, 0xff, 0x55, 0xff}, {0xff, 0xff, 0xff, 0xff},
}

// Render paints a text-mode buffer with the 7x13 fixed font, honoring the
// foreground and background nibbles of each attribute byte.  The cursor cell
// is drawn as an underline.
func Render(mem []byte, cursor Cursor) *image.RGBA {
	face := basicfont.Face7x13
	cw, ch := face.Advance, face.Height
	img := image.NewRGBA(image.Rect(0, 0, Columns*cw, Rows*ch))
	draw.Draw(img, img.Bounds(), image.NewUniform(palette[0]), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Face: face}
	for y := 0; y < Rows; y++ {
		for x := 0; x < Columns; x++ {
			i := (y*Columns + x) * 2
			c, attr := mem[i], mem[i+1]
			cell := image.Rect(x*cw, y*ch, (x+1)*cw, (y+1)*ch)
			if bg := attr >> 4 & 0x7; bg != 0 {
				draw.Draw(img, cell, image.NewUniform(palette[bg]), image.Point{}, draw.Src)
			}
			if c == 0 || c == ' ' {
				continue
			}
			d.Src = image.NewUniform(palette[attr&0xf])
			d.Dot = fixed.P(x*cw, y*ch+face.Ascent)
			d.DrawString(string(rune(c)))
		}
	}
	if cursor.X >= 0 && cursor.X < Columns && cursor.Y >= 0 && cursor.Y < Rows {
		u := image.Rect(cursor.X*cw, (cursor.Y+1)*ch-2, (cursor.X+1)*cw, (cursor.Y+1)*ch)
		draw.Draw(img, u, image.NewUniform(palette[Attribute]), image.Point{}, draw.Src)
	}
	return img
}

// WritePNG renders mem and encodes it to w.
func WritePNG(w io.Writer, mem []byte, cursor Cursor) error {
	return png.Encode(w, Render(mem, cursor))
}
