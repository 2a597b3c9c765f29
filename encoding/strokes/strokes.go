// Package strokes is the binary recording format of a drawing: the canvas
// side and every stroke with its pen and points, enough to redraw the same
// pixels later.
//
// Layout (little endian):
//
//	header      32 bytes, HeaderV1
//	side        uint32
//	nbStrokes   uint32
//	per stroke:
//	  width     float32
//	  color     uint32 (0xRRGGBBAA)
//	  nbPoints  uint32
//	  points    nbPoints * (float32 x, float32 y)
package strokes

import (
	"image/color"
)

const (
	HeaderV1  = "digitpad strokes, version=1     "
	HeaderLen = 32
)

type Point struct {
	X float32
	Y float32
}

type Stroke struct {
	Width  float32
	Color  uint32
	Points []Point
}

type Recording struct {
	Side    int
	Strokes []Stroke
}

// PackColor converts c to the 0xRRGGBBAA form stored in a recording.
func PackColor(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.R)<<24 | uint32(n.G)<<16 | uint32(n.B)<<8 | uint32(n.A)
}

// UnpackColor is the inverse of PackColor.
func UnpackColor(v uint32) color.Color {
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// NbPoints counts the points of all strokes.
func (r *Recording) NbPoints() int {
	n := 0
	for _, s := range r.Strokes {
		n += len(s.Points)
	}
	return n
}
