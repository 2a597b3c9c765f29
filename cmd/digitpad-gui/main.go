// digitpad-gui is the desktop pad: draw on the left, the model input is
// previewed on the right and the prediction is printed underneath. C clears.
package main

import (
	"context"
	"flag"
	"sync"

	"github.com/digitpad/digitpad/config"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/inference/remote"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/surface"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/pkg/errors"
)

const (
	gap        = 16
	statusArea = 40
)

type game struct {
	ctx        context.Context
	pad        *pad.Pad
	classifier *inference.Classifier
	side       int

	drawing *ebiten.Image
	preview *ebiten.Image

	touchID  ebiten.TouchID
	touching bool
	touchIDs []ebiten.TouchID

	mu      sync.Mutex
	message string
}

func newGame(ctx context.Context, p *pad.Pad, classifier *inference.Classifier) *game {
	side := p.Options().Side
	return &game{
		ctx:        ctx,
		pad:        p,
		classifier: classifier,
		side:       side,
		drawing:    ebiten.NewImage(side, side),
		preview:    ebiten.NewImage(side, side),
	}
}

func (g *game) setMessage(msg string) {
	g.mu.Lock()
	g.message = msg
	g.mu.Unlock()
}

func (g *game) status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	text := g.pad.Prediction().String()
	if g.classifier != nil && g.classifier.State() != inference.Ready {
		text += "\nmodel " + g.classifier.State().String()
	}
	if g.message != "" {
		text += "\n" + g.message
	}
	return text
}

func (g *game) down(x, y int) {
	if x < 0 || y < 0 || x >= g.side || y >= g.side {
		return
	}
	g.pad.PointerDown(surface.Point{X: float64(x), Y: float64(y)})
}

func (g *game) move(x, y int) {
	if !g.pad.Drawing() {
		return
	}
	if err := g.pad.PointerMove(surface.Point{X: float64(x), Y: float64(y)}); err != nil {
		g.setMessage(err.Error())
	}
}

// up ends the stroke and predicts off the frame loop.
func (g *game) up() {
	req, err := g.pad.PointerUp()
	if err != nil {
		g.setMessage(err.Error())
		return
	}
	if req == nil {
		return
	}
	go func() {
		_, err := g.pad.Predict(g.ctx, req)
		switch {
		case err == nil:
			g.setMessage("")
		case errors.Cause(err) == pad.ErrSuperseded:
		default:
			g.setMessage(err.Error())
		}
	}()
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.pad.Clear()
		g.setMessage("")
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.down(ebiten.CursorPosition())
	} else if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.move(ebiten.CursorPosition())
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.up()
	}

	if !g.touching {
		g.touchIDs = inpututil.AppendJustPressedTouchIDs(g.touchIDs[:0])
		if len(g.touchIDs) > 0 {
			g.touchID, g.touching = g.touchIDs[0], true
			g.down(ebiten.TouchPosition(g.touchID))
		}
	} else if inpututil.IsTouchJustReleased(g.touchID) {
		g.touching = false
		g.up()
	} else {
		g.move(ebiten.TouchPosition(g.touchID))
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.drawing.WritePixels(g.pad.Canvas().Pix)
	g.preview.WritePixels(g.pad.Preview().Pix)

	screen.DrawImage(g.drawing, nil)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(g.side+gap), 0)
	screen.DrawImage(g.preview, op)

	ebitenutil.DebugPrintAt(screen, g.status(), 4, g.side+4)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 2*g.side + gap, g.side + statusArea
}

func main() {
	configPath := flag.String("config", "", "config file")
	flag.Parse()

	if *configPath == "" {
		p, err := config.Path()
		if err != nil {
			log.Error.Fatal(err)
		}
		*configPath = p
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error.Fatal(err)
	}
	options, err := pad.OptionsFrom(cfg.Canvas)
	if err != nil {
		log.Error.Fatal(err)
	}

	ctx := context.Background()
	var classifier *inference.Classifier
	var predictor pad.Predictor
	if cfg.Model.URL != "" {
		classifier, _ = remote.NewClassifier(cfg.Model)
		classifier.Start(ctx)
		predictor = classifier
	} else {
		log.Warning.Println("no model configured, predictions are disabled")
	}

	p, err := pad.New(options, predictor)
	if err != nil {
		log.Error.Fatal(err)
	}
	defer p.Close()

	g := newGame(ctx, p, classifier)
	w, h := g.Layout(0, 0)
	ebiten.SetWindowTitle("digitpad")
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(g); err != nil {
		log.Error.Fatal(err)
	}
}
