package surface

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var white = Style{Width: 20, Color: color.White}

func newCanvas(t *testing.T, side int) *Canvas {
	c, err := NewCanvas(side, color.Black)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func uniform(img *image.RGBA) bool {
	first := img.Pix[0:4]
	for i := 0; i < len(img.Pix); i += 4 {
		for j := 0; j < 4; j++ {
			if img.Pix[i+j] != first[j] {
				return false
			}
		}
	}
	return true
}

func TestNewCanvasRejectsBadSide(t *testing.T) {
	_, err := NewCanvas(0, color.Black)
	assert.Equal(t, ErrInvalidSize, errors.Cause(err))
}

func TestNewCanvasIsBackground(t *testing.T) {
	c := newCanvas(t, 64)
	img := c.Image()
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	assert.True(t, uniform(img))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(10, 10))
}

func TestDrawSegmentMarksPixels(t *testing.T) {
	c := newCanvas(t, 100)
	require.NoError(t, c.DrawSegment(Point{20, 50}, Point{80, 50}, white))

	img := c.Image()
	center := img.RGBAAt(50, 50)
	assert.Equal(t, uint8(255), center.R)
	assert.Equal(t, center.R, center.G)
	assert.Equal(t, center.R, center.B)
	// far from the segment the background is untouched
	assert.Equal(t, uint8(0), img.RGBAAt(50, 5).R)
	// round caps extend past the end points
	assert.NotZero(t, img.RGBAAt(85, 50).R)
}

func TestDrawSegmentRejectsZeroWidth(t *testing.T) {
	c := newCanvas(t, 10)
	assert.Error(t, c.DrawSegment(Point{1, 1}, Point{5, 5}, Style{Color: color.White}))
}

func TestDrawSegmentRejectsNonFinite(t *testing.T) {
	c := newCanvas(t, 64)
	from, to := Point{X: 10, Y: 10}, Point{X: 50, Y: 50}

	assert.Error(t, c.DrawSegment(from, to, Style{Width: math.NaN(), Color: color.White}))
	assert.Error(t, c.DrawSegment(from, to, Style{Width: math.Inf(1), Color: color.White}))
	assert.Error(t, c.DrawSegment(from, Point{X: math.Inf(-1), Y: 5}, white))
	assert.Error(t, c.DrawSegment(Point{X: 5, Y: math.NaN()}, to, white))
	assert.True(t, uniform(c.Image()))

	assert.True(t, ValidWidth(0.5))
	assert.False(t, ValidWidth(0))
	assert.False(t, ValidWidth(math.NaN()))
	assert.True(t, Point{X: 1, Y: 2}.Finite())
	assert.False(t, Point{X: math.NaN(), Y: 2}.Finite())
}

func TestClearRestoresBackground(t *testing.T) {
	c := newCanvas(t, 50)
	require.NoError(t, c.DrawSegment(Point{0, 0}, Point{50, 50}, white))
	assert.False(t, uniform(c.Image()))

	c.Clear()
	assert.True(t, uniform(c.Image()))
}

func TestImageIsACopy(t *testing.T) {
	c := newCanvas(t, 20)
	img := c.Image()
	img.Pix[0] = 200
	assert.Equal(t, uint8(0), c.Image().Pix[0])
}

func TestScale(t *testing.T) {
	s, err := Scale(28, 336)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/12, s, 1e-12)

	for _, tc := range [][2]int{{0, 336}, {28, 0}, {-1, 10}, {40, 20}} {
		_, err := Scale(tc[0], tc[1])
		assert.Equal(t, ErrInvalidSize, errors.Cause(err), "%v", tc)
	}
}

func TestDownscaleAlwaysHasTargetSize(t *testing.T) {
	for _, side := range []int{28, 56, 100, 336, 500} {
		for _, f := range []Filter{FilterArea, FilterSample, FilterBilinear, FilterBicubic, FilterLanczos} {
			c := newCanvas(t, side)
			fs := float64(side)
			require.NoError(t, c.DrawSegment(Point{fs * 0.2, fs * 0.2}, Point{fs * 0.8, fs * 0.7}, Style{Width: fs / 15, Color: color.White}))

			small, err := Downscale(c.Image(), 28, f)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 28, 28), small.Bounds(), "side %d filter %s", side, f)
		}
	}
}

func TestDownscaleRejectsZeroSize(t *testing.T) {
	_, err := Downscale(Fill(10, color.Black), 0, FilterArea)
	assert.Equal(t, ErrInvalidSize, errors.Cause(err))
	_, err = Upscale(Fill(10, color.Black), -3)
	assert.Equal(t, ErrInvalidSize, errors.Cause(err))
}

func TestDownscaleOfEmptyCanvasIsUniform(t *testing.T) {
	c := newCanvas(t, 336)
	small, err := Downscale(c.Image(), 28, FilterArea)
	require.NoError(t, err)
	assert.True(t, uniform(small))
	assert.Equal(t, uint8(0), small.Pix[0])
}

func TestDownscaleIsDeterministic(t *testing.T) {
	draw := func() *image.RGBA {
		c := newCanvas(t, 336)
		require.NoError(t, c.DrawSegment(Point{100, 40}, Point{160, 300}, white))
		require.NoError(t, c.DrawSegment(Point{160, 300}, Point{220, 60}, white))
		small, err := Downscale(c.Image(), 28, FilterArea)
		require.NoError(t, err)
		return small
	}
	assert.Equal(t, draw().Pix, draw().Pix)
}

func TestDownscaleDoesNotAlias(t *testing.T) {
	src := Fill(28, color.Black)
	out, err := Downscale(src, 28, FilterArea)
	require.NoError(t, err)
	out.Pix[0] = 99
	assert.Equal(t, uint8(0), src.Pix[0])
}

func TestSampleTakesTopLeftOfEachBlock(t *testing.T) {
	src := Fill(12, color.Black)
	// block (1,0) covers x 3..5 with step 3
	src.Set(3, 0, color.White)
	src.Set(4, 1, color.White)

	out, err := Downscale(src, 4, FilterSample)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.RGBAAt(1, 0).R)
	assert.Equal(t, uint8(0), out.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), out.RGBAAt(1, 1).R)
}

func TestUpscaleIsBlocky(t *testing.T) {
	src := Fill(2, color.Black)
	src.Set(1, 0, color.White)

	big, err := Upscale(src, 8)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), big.Bounds())
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			want := uint8(0)
			if x >= 4 {
				want = 255
			}
			assert.Equal(t, want, big.RGBAAt(x, y).R, "(%d,%d)", x, y)
		}
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterArea, f)

	f, err = ParseFilter(" Sample ")
	require.NoError(t, err)
	assert.Equal(t, FilterSample, f)

	_, err = ParseFilter("smooth")
	assert.Equal(t, ErrUnknownFilter, errors.Cause(err))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ffffff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, c)

	c, err = ParseColor("10203040")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x10, 0x20, 0x30, 0x40}, c)

	for _, bad := range []string{"", "white", "#fff", "#gggggg"} {
		_, err := ParseColor(bad)
		assert.Equal(t, ErrInvalidColor, errors.Cause(err), bad)
	}
}

func TestPen(t *testing.T) {
	var p Pen

	_, ok := p.Move(Point{1, 1})
	assert.False(t, ok, "move without down is ignored")
	_, ok = p.Up()
	assert.False(t, ok)

	p.Down(Point{1, 2})
	assert.True(t, p.Active())
	from, ok := p.Move(Point{3, 4})
	require.True(t, ok)
	assert.Equal(t, Point{1, 2}, from)
	from, _ = p.Move(Point{5, 6})
	assert.Equal(t, Point{3, 4}, from)

	path, ok := p.Up()
	require.True(t, ok)
	assert.Equal(t, []Point{{1, 2}, {3, 4}, {5, 6}}, path)
	assert.False(t, p.Active())

	p.Down(Point{9, 9})
	p.Reset()
	assert.False(t, p.Active())
}
