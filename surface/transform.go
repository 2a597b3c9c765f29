package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

var (
	ErrUnknownFilter = errors.New("unknown resample filter")
	ErrInvalidColor  = errors.New("invalid colour")
)

// Filter selects how the drawing is reduced to the model input.
type Filter string

const (
	// FilterArea averages every source pixel covered by a target pixel.
	FilterArea Filter = "area"
	// FilterSample keeps the top-left pixel of every block.
	FilterSample   Filter = "sample"
	FilterBilinear Filter = "bilinear"
	FilterBicubic  Filter = "bicubic"
	FilterLanczos  Filter = "lanczos"
)

// ParseFilter maps a configuration value to a Filter. The empty string is the
// default, FilterArea.
func ParseFilter(name string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FilterArea, nil
	case FilterArea, FilterSample, FilterBilinear, FilterBicubic, FilterLanczos:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
}

// nfnt scales the kernel by the reduction factor when shrinking, so its
// nearest neighbour kernel becomes a box over the covered area.
func (f Filter) interpolation() resize.InterpolationFunction {
	switch f {
	case FilterBilinear:
		return resize.Bilinear
	case FilterBicubic:
		return resize.Bicubic
	case FilterLanczos:
		return resize.Lanczos3
	default:
		return resize.NearestNeighbor
	}
}

// Scale returns the factor small/large applied when the drawing is reduced.
// Both sizes must be positive and small must not exceed large.
func Scale(small, large int) (float64, error) {
	if small <= 0 || large <= 0 {
		return 0, errors.Wrapf(ErrInvalidSize, "small %d, large %d", small, large)
	}
	if small > large {
		return 0, errors.Wrapf(ErrInvalidSize, "block %d cannot be greater than side %d", small, large)
	}
	return float64(small) / float64(large), nil
}

// Downscale redraws src into a new size x size raster. The result has exactly
// that size whatever the source dimensions are, and is a pure function of the
// source pixels.
func Downscale(src image.Image, size int, f Filter) (*image.RGBA, error) {
	b := src.Bounds()
	if size <= 0 || b.Empty() {
		return nil, errors.Wrapf(ErrInvalidSize, "downscale %v to %d", b.Size(), size)
	}
	if f == FilterSample {
		return sample(src, size), nil
	}
	if f == "" {
		f = FilterArea
	}
	return detach(resize.Resize(uint(size), uint(size), src, f.interpolation()), src), nil
}

// Upscale enlarges src to size x size with nearest neighbour sampling, giving
// the blocky preview of what the model sees.
func Upscale(src image.Image, size int) (*image.RGBA, error) {
	b := src.Bounds()
	if size <= 0 || b.Empty() {
		return nil, errors.Wrapf(ErrInvalidSize, "upscale %v to %d", b.Size(), size)
	}
	return detach(resize.Resize(uint(size), uint(size), src, resize.NearestNeighbor), src), nil
}

// detach makes sure the result never aliases the source: resize hands the
// input back untouched when no scaling is needed.
func detach(out, src image.Image) *image.RGBA {
	if out == src {
		b := src.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Rect, src, b.Min, draw.Src)
		return rgba
	}
	return toRGBA(out)
}

func sample(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	stepX := int(math.Ceil(float64(b.Dx()) / float64(size)))
	stepY := int(math.Ceil(float64(b.Dy()) / float64(size)))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		sy := b.Min.Y + min(y*stepY, b.Dy()-1)
		for x := 0; x < size; x++ {
			sx := b.Min.X + min(x*stepX, b.Dx()-1)
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

// ParseColor accepts #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, errors.Wrapf(ErrInvalidColor, "%q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidColor, "%q", s)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
