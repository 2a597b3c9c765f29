// Package surface holds the rasters of a drawing session: the full
// resolution canvas the pen draws on and the pure transforms that derive the
// downsampled model input and the pixelated preview from it.
package surface

import (
	"image"
	"math"
	"image/color"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/pkg/errors"
)

var ErrInvalidSize = errors.New("invalid surface size")

// Point is a position in canvas pixels, origin top-left.
type Point struct {
	X, Y float64
}

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return finite(p.X) && finite(p.Y)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidWidth reports whether w can be used as a pen width.
func ValidWidth(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}

// Style is the pen used for every segment of a stroke. Caps are always round.
type Style struct {
	Width float64
	Color color.Color
}

// Canvas is an editable square raster backed by a gg software context.
type Canvas struct {
	dc         *gg.Context
	side       int
	background gg.RGBA
}

func NewCanvas(side int, background color.Color) (*Canvas, error) {
	if side <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "canvas side %d", side)
	}
	c := &Canvas{
		dc:         gg.NewContext(side, side),
		side:       side,
		background: gg.FromColor(background),
	}
	c.dc.SetLineCap(gg.LineCapRound)
	c.dc.SetLineJoin(gg.LineJoinRound)
	c.Clear()
	return c, nil
}

func (c *Canvas) Side() int {
	return c.side
}

// Clear fills the whole canvas with the background colour.
func (c *Canvas) Clear() {
	c.dc.ClearPath()
	c.dc.ClearWithColor(c.background)
}

// DrawSegment strokes the line from -> to. A zero length segment leaves a dot
// the size of the pen.
func (c *Canvas) DrawSegment(from, to Point, style Style) error {
	if !ValidWidth(style.Width) {
		return errors.Errorf("invalid stroke width %v", style.Width)
	}
	if !from.Finite() || !to.Finite() {
		return errors.Errorf("invalid segment %v -> %v", from, to)
	}
	c.dc.SetColor(style.Color)
	c.dc.SetLineWidth(style.Width)
	c.dc.SetLineCap(gg.LineCapRound)
	c.dc.MoveTo(from.X, from.Y)
	c.dc.LineTo(to.X, to.Y)
	return errors.Wrap(c.dc.Stroke(), "stroke segment")
}

// Image returns a copy of the canvas pixels.
func (c *Canvas) Image() *image.RGBA {
	return toRGBA(c.dc.Image())
}

// Close releases the rendering context.
func (c *Canvas) Close() error {
	return c.dc.Close()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}

// Fill returns a new side x side raster of a single colour.
func Fill(side int, col color.Color) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(rgba, rgba.Rect, image.NewUniform(col), image.Point{}, draw.Src)
	return rgba
}
