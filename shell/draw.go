package shell

import (
	"flag"
	"image/color"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/surface"
	"github.com/pkg/errors"
)

func parsePoints(args []string) ([]surface.Point, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errors.New("expected pairs of x y coordinates")
	}
	points := make([]surface.Point, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		x, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, errors.Errorf("bad x %q", args[i])
		}
		y, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return nil, errors.Errorf("bad y %q", args[i+1])
		}
		pt := surface.Point{X: x, Y: y}
		if !pt.Finite() {
			return nil, errors.Errorf("bad point %v", pt)
		}
		points = append(points, pt)
	}
	return points, nil
}

func parsePoint(args []string) (surface.Point, error) {
	if len(args) != 2 {
		return surface.Point{}, errors.New("expected x y")
	}
	points, err := parsePoints(args)
	if err != nil {
		return surface.Point{}, err
	}
	return points[0], nil
}

func downCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "down",
		Help: "press the pen at x y",
		Func: func(c *ishell.Context) {
			pt, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ctx.Pad.PointerDown(pt)
		},
	}
}

func moveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "move",
		Help: "drag the pen to x y",
		Func: func(c *ishell.Context) {
			pt, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if !ctx.Pad.Drawing() {
				c.Err(errors.New("pen is up, use down first"))
				return
			}
			if err := ctx.Pad.PointerMove(pt); err != nil {
				c.Err(err)
			}
		},
	}
}

func upCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "up",
		Help: "lift the pen and predict",
		Func: func(c *ishell.Context) {
			printPrediction(c, ctx, release(ctx))
		},
	}
}

func strokeCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:     "stroke",
		Help:     "draw a whole stroke: stroke x1 y1 x2 y2 ...",
		LongHelp: "Usage: stroke x1 y1 [x2 y2 ...]\n\nPresses the pen at the first point, drags it through the others,\nlifts it and predicts.",
		Func: func(c *ishell.Context) {
			points, err := parsePoints(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := drawStroke(ctx.Pad, points); err != nil {
				c.Err(err)
				return
			}
			printPrediction(c, ctx, release(ctx))
		},
	}
}

func drawStroke(p *pad.Pad, points []surface.Point) error {
	p.PointerDown(points[0])
	for _, pt := range points[1:] {
		if err := p.PointerMove(pt); err != nil {
			return err
		}
	}
	return nil
}

func penCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "pen",
		Help: "show or set the pen: pen [-w width] [-g gray 0-255]",
		Func: func(c *ishell.Context) {
			style := ctx.Pad.Style()

			flagSet := flag.NewFlagSet("pen", flag.ContinueOnError)
			width := flagSet.Float64("w", style.Width, "line width in canvas pixels")
			gray := flagSet.Int("g", int(color.GrayModel.Convert(style.Color).(color.Gray).Y), "gray level")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}
			if *gray < 0 || *gray > 255 {
				c.Err(errors.Errorf("gray level %d out of range", *gray))
				return
			}

			style = surface.Style{Width: *width, Color: color.Gray{Y: uint8(*gray)}}
			if err := ctx.Pad.SetStyle(style); err != nil {
				c.Err(err)
				return
			}
			c.Printf("pen width %v, gray %d\n", *width, *gray)
		},
	}
}

func clearCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "clear",
		Help: "clear the canvas and the prediction",
		Func: func(c *ishell.Context) {
			ctx.Pad.Clear()
			c.Println(ctx.Pad.Prediction())
		},
	}
}
