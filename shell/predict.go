package shell

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/pad"
	"github.com/pkg/errors"
)

type outcome struct {
	prediction inference.Prediction
	err        error
}

func release(ctx *ShellCtxt) outcome {
	prediction, err := ctx.Pad.Release(ctx.context())
	return outcome{prediction, err}
}

func printPrediction(c *ishell.Context, ctx *ShellCtxt, o outcome) {
	if o.err != nil {
		if errors.Cause(o.err) != pad.ErrSuperseded {
			c.Err(o.err)
		}
		return
	}
	c.Println(predictionText(ctx, o))
}

func predictionText(ctx *ShellCtxt, o outcome) string {
	if ctx.Classifier == nil {
		return errNoModel.Error()
	}
	return o.prediction.String()
}

func predictCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "predict",
		Help: "classify the current drawing again",
		Func: func(c *ishell.Context) {
			if ctx.Classifier == nil {
				c.Err(errNoModel)
				return
			}
			t, err := ctx.Pad.Tensor()
			if err != nil {
				c.Err(err)
				return
			}
			prediction, err := ctx.Classifier.Classify(ctx.context(), t)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(prediction)
		},
	}
}

func statusCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "status",
		Help: "show the model and pad state",
		Func: func(c *ishell.Context) {
			c.Println(status(ctx))
		},
	}
}

func status(ctx *ShellCtxt) string {
	var b strings.Builder
	if ctx.Classifier == nil {
		b.WriteString("model:      none\n")
	} else {
		fmt.Fprintf(&b, "model:      %s (%s)\n", ctx.Classifier.ModelURL(), ctx.Classifier.State())
		if err := ctx.Classifier.Err(); err != nil {
			fmt.Fprintf(&b, "error:      %v\n", err)
		}
	}
	rec := ctx.Pad.Recording()
	style := ctx.Pad.Style()
	fmt.Fprintf(&b, "canvas:     %dx%d -> %dx%d\n", ctx.Options.Side, ctx.Options.Side, ctx.Options.Block, ctx.Options.Block)
	fmt.Fprintf(&b, "pen:        width %v\n", style.Width)
	fmt.Fprintf(&b, "strokes:    %d (%d points)\n", len(rec.Strokes), rec.NbPoints())
	fmt.Fprintf(&b, "prediction: %s", ctx.Pad.Prediction())
	return b.String()
}

func showCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "show",
		Help: "print the downsampled drawing",
		Func: func(c *ishell.Context) {
			c.Print(ascii(ctx.Pad.Downsampled()))
			c.Println(ctx.Pad.Prediction())
		},
	}
}

const ramp = " .:-=+*#%@"

// ascii renders img two characters per pixel, darkest to brightest.
func ascii(img image.Image) string {
	var b strings.Builder
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (r + g + bl) / 3 >> 8
			ch := ramp[int(lum)*(len(ramp)-1)/255]
			b.WriteByte(ch)
			b.WriteByte(ch)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func tensorCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "tensor",
		Help: "print the model input: tensor [-json]",
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("tensor", flag.ContinueOnError)
			asJSON := flagSet.Bool("json", false, "print the whole tensor as json")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			t, err := ctx.Pad.Tensor()
			if err != nil {
				c.Err(err)
				return
			}
			if !*asJSON {
				c.Println(t)
				return
			}
			out, err := json.Marshal(t)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(string(out))
		},
	}
}
