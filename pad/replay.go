package pad

import (
	"context"

	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/surface"
	"github.com/pkg/errors"
)

// Replay clears the pad, redraws rec stroke by stroke and predicts once on
// the finished drawing. Recordings made on a canvas of another size are
// scaled to this one. A stroke that cannot be drawn leaves the pad cleared;
// a failed prediction leaves the whole drawing in place. The pen style in
// effect before the replay is restored afterwards.
func (p *Pad) Replay(ctx context.Context, rec strokes.Recording) (inference.Prediction, error) {
	p.Clear()

	ratio := 1.0
	if rec.Side > 0 && rec.Side != p.opts.Side {
		ratio = float64(p.opts.Side) / float64(rec.Side)
	}

	saved := p.Style()
	defer p.SetStyle(saved)

	var last *Request
	for i, s := range rec.Strokes {
		req, err := p.redraw(s, ratio)
		if err != nil {
			p.Clear()
			return inference.NoPrediction, errors.Wrapf(err, "stroke %d", i)
		}
		if req != nil {
			last = req
		}
	}
	return p.Predict(ctx, last)
}

func (p *Pad) redraw(s strokes.Stroke, ratio float64) (*Request, error) {
	if len(s.Points) == 0 {
		return nil, nil
	}
	style := surface.Style{Width: float64(s.Width) * ratio, Color: strokes.UnpackColor(s.Color)}
	if err := p.SetStyle(style); err != nil {
		return nil, err
	}

	first := scaled(s.Points[0], ratio)
	if !first.Finite() {
		return nil, errors.Errorf("invalid point %v", first)
	}
	p.PointerDown(first)
	for _, pt := range s.Points[1:] {
		if err := p.PointerMove(scaled(pt, ratio)); err != nil {
			p.PointerUp()
			return nil, err
		}
	}
	return p.PointerUp()
}

func scaled(pt strokes.Point, ratio float64) surface.Point {
	return surface.Point{X: float64(pt.X) * ratio, Y: float64(pt.Y) * ratio}
}
