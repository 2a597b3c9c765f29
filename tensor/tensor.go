// Package tensor turns the downsampled drawing into the flat float32 buffer
// consumed by the classifier.
//
// Only the red channel of each pixel is kept, so the image must be grayscale:
// a coloured stroke would silently lose information. FromImage enforces this.
package tensor

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

var (
	ErrNotGrayscale  = errors.New("image is not grayscale")
	ErrNotSquare     = errors.New("image is not square")
	ErrShapeMismatch = errors.New("shape does not match tensor length")
)

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// FromImage takes the red channel of every pixel as a raw 0..255 float and
// shapes the result as [1, 1, height, width].
func FromImage(img *image.RGBA) (*Tensor, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w != h || w == 0 {
		return nil, errors.Wrapf(ErrNotSquare, "%dx%d", w, h)
	}

	data := make([]float32, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			if px[0] != px[1] || px[0] != px[2] {
				return nil, errors.Wrapf(ErrNotGrayscale, "pixel (%d,%d) is rgb(%d,%d,%d)",
					b.Min.X+x, y, px[0], px[1], px[2])
			}
			data = append(data, float32(px[0]))
		}
	}

	return &Tensor{Shape: []int{1, 1, h, w}, Data: data}, nil
}

func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dims returns the product of the shape.
func (t *Tensor) Dims() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Reshape returns a view of the same data with another shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, errors.Wrapf(ErrShapeMismatch, "dimension %d in %v", d, shape)
		}
		n *= d
	}
	if n != len(t.Data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%v holds %d values, tensor has %d", shape, n, len(t.Data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: t.Data}, nil
}

// At reads the value at row y, column x of the last two dimensions.
func (t *Tensor) At(y, x int) float32 {
	w := t.Shape[len(t.Shape)-1]
	return t.Data[y*w+x]
}

func (t *Tensor) String() string {
	return fmt.Sprintf("tensor%v", t.Shape)
}
