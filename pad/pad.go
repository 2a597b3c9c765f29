// Package pad is one drawing session: the pen, the full resolution canvas,
// the downsampled model input, the preview and the published prediction.
package pad

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/digitpad/digitpad/config"
	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/surface"
	"github.com/digitpad/digitpad/tensor"
	"github.com/pkg/errors"
)

// ErrSuperseded is returned by Predict when a newer stroke or a clear
// happened while the request was running; its result was dropped.
var ErrSuperseded = errors.New("prediction superseded")

// Predictor is what a pad needs from a classifier.
type Predictor interface {
	Classify(ctx context.Context, t *tensor.Tensor) (inference.Prediction, error)
}

type Options struct {
	Side       int
	Block      int
	Style      surface.Style
	Background color.Color
	Filter     surface.Filter
}

// OptionsFrom converts the canvas section of the configuration.
func OptionsFrom(c config.Canvas) (Options, error) {
	filter, err := surface.ParseFilter(c.Filter)
	if err != nil {
		return Options{}, err
	}
	stroke, err := surface.ParseColor(c.Stroke)
	if err != nil {
		return Options{}, errors.Wrap(err, "stroke")
	}
	bg, err := surface.ParseColor(c.Background)
	if err != nil {
		return Options{}, errors.Wrap(err, "background")
	}
	return Options{
		Side:       c.Side,
		Block:      c.Block,
		Style:      surface.Style{Width: c.LineWidth, Color: stroke},
		Background: bg,
		Filter:     filter,
	}, nil
}

// Request is a snapshot of the model input taken when a stroke ends.
type Request struct {
	Generation uint64
	Tensor     *tensor.Tensor
}

type Pad struct {
	opts      Options
	predictor Predictor

	mu          sync.Mutex
	style       surface.Style
	pen         surface.Pen
	drawing     *surface.Canvas
	downsampled *image.RGBA
	preview     *image.RGBA
	prediction  inference.Prediction
	generation  uint64
	recording   strokes.Recording
}

// New creates an empty pad. predictor may be nil, in which case strokes are
// drawn but never classified.
func New(opts Options, predictor Predictor) (*Pad, error) {
	if _, err := surface.Scale(opts.Block, opts.Side); err != nil {
		return nil, err
	}
	if !surface.ValidWidth(opts.Style.Width) {
		return nil, errors.Errorf("invalid line width %v", opts.Style.Width)
	}
	if opts.Style.Color == nil {
		opts.Style.Color = color.White
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	if opts.Filter == "" {
		opts.Filter = surface.FilterArea
	}

	drawing, err := surface.NewCanvas(opts.Side, opts.Background)
	if err != nil {
		return nil, err
	}

	p := &Pad{
		opts:      opts,
		predictor: predictor,
		style:     opts.Style,
		drawing:   drawing,
	}
	p.reset()
	return p, nil
}

func (p *Pad) Options() Options {
	return p.opts
}

// PointerDown starts a stroke at pt. A point off the real plane is ignored.
func (p *Pad) PointerDown(pt surface.Point) {
	if !pt.Finite() {
		log.Trace.Printf("ignoring pen down at %v", pt)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pen.Down(pt)
	log.Trace.Printf("pen down at %v", pt)
}

// PointerMove extends the active stroke, draws the new segment and re-renders
// the downsampled and preview surfaces. Moves with the pen up do nothing.
func (p *Pad) PointerMove(pt surface.Point) error {
	if !pt.Finite() {
		return errors.Errorf("invalid point %v", pt)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	from, ok := p.pen.Move(pt)
	if !ok {
		return nil
	}
	if err := p.drawing.DrawSegment(from, pt, p.style); err != nil {
		return err
	}
	return p.render()
}

// PointerUp ends the stroke and snapshots the model input. It returns nil
// when no stroke was in progress.
func (p *Pad) PointerUp() (*Request, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, ok := p.pen.Up()
	if !ok {
		return nil, nil
	}
	p.record(path)

	t, err := tensor.FromImage(p.downsampled)
	if err != nil {
		return nil, err
	}
	p.generation++
	log.Trace.Printf("pen up after %d points, request %d", len(path), p.generation)
	return &Request{Generation: p.generation, Tensor: t}, nil
}

// Predict classifies req and publishes the result unless a newer request or
// a clear came in meanwhile. Inference runs without holding the pad lock. On
// failure the previous prediction stays.
func (p *Pad) Predict(ctx context.Context, req *Request) (inference.Prediction, error) {
	if req == nil || p.predictor == nil {
		return p.Prediction(), nil
	}

	prediction, err := p.predictor.Classify(ctx, req.Tensor)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		return p.prediction, err
	}
	if req.Generation != p.generation {
		log.Trace.Printf("dropping result %d of request %d, current is %d", prediction, req.Generation, p.generation)
		return p.prediction, ErrSuperseded
	}
	p.prediction = prediction
	return prediction, nil
}

// Release is PointerUp followed by Predict.
func (p *Pad) Release(ctx context.Context) (inference.Prediction, error) {
	req, err := p.PointerUp()
	if err != nil {
		return p.Prediction(), err
	}
	return p.Predict(ctx, req)
}

// Clear resets every surface to the background, forgets the prediction and
// the recording, and invalidates requests still in flight.
func (p *Pad) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pen.Reset()
	p.drawing.Clear()
	p.reset()
	p.generation++
}

// reset must be called with the lock held and a cleared drawing.
func (p *Pad) reset() {
	p.downsampled = surface.Fill(p.opts.Block, p.opts.Background)
	p.preview = surface.Fill(p.opts.Side, p.opts.Background)
	p.prediction = inference.NoPrediction
	p.recording = strokes.Recording{Side: p.opts.Side, Strokes: []strokes.Stroke{}}
}

func (p *Pad) render() error {
	small, err := surface.Downscale(p.drawing.Image(), p.opts.Block, p.opts.Filter)
	if err != nil {
		return err
	}
	preview, err := surface.Upscale(small, p.opts.Side)
	if err != nil {
		return err
	}
	p.downsampled, p.preview = small, preview
	return nil
}

func (p *Pad) record(path []surface.Point) {
	s := strokes.Stroke{
		Width:  float32(p.style.Width),
		Color:  strokes.PackColor(p.style.Color),
		Points: make([]strokes.Point, len(path)),
	}
	for i, pt := range path {
		s.Points[i] = strokes.Point{X: float32(pt.X), Y: float32(pt.Y)}
	}
	p.recording.Strokes = append(p.recording.Strokes, s)
}

// SetStyle changes the pen for the following strokes. Anything but a gray
// pen makes the model input unusable, see tensor.FromImage.
func (p *Pad) SetStyle(style surface.Style) error {
	if !surface.ValidWidth(style.Width) {
		return errors.Errorf("invalid line width %v", style.Width)
	}
	if style.Color == nil {
		return errors.New("missing pen colour")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.style = style
	return nil
}

func (p *Pad) Style() surface.Style {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.style
}

func (p *Pad) Prediction() inference.Prediction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prediction
}

// Drawing reports whether a stroke is in progress.
func (p *Pad) Drawing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pen.Active()
}

// Canvas returns a copy of the full resolution drawing.
func (p *Pad) Canvas() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drawing.Image()
}

// Downsampled returns a copy of the model input raster.
func (p *Pad) Downsampled() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clone(p.downsampled)
}

// Preview returns a copy of the pixelated preview.
func (p *Pad) Preview() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clone(p.preview)
}

// Tensor converts the current downsampled raster.
func (p *Pad) Tensor() (*tensor.Tensor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return tensor.FromImage(p.downsampled)
}

// Recording returns the finished strokes since the last clear.
func (p *Pad) Recording() strokes.Recording {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := strokes.Recording{Side: p.recording.Side, Strokes: make([]strokes.Stroke, len(p.recording.Strokes))}
	copy(rec.Strokes, p.recording.Strokes)
	return rec
}

// Close releases the drawing context.
func (p *Pad) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drawing.Close()
}

func clone(img *image.RGBA) *image.RGBA {
	c := *img
	c.Pix = append([]uint8(nil), img.Pix...)
	return &c
}
