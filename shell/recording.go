package shell

import (
	"flag"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/report"
	"github.com/pkg/errors"
)

const strokesExt = ".strokes"

// fileCompleter offers the files of the current directory ending in ext.
func fileCompleter(ext string) func([]string) []string {
	return func(args []string) []string {
		matches, _ := filepath.Glob("*" + ext)
		return matches
	}
}

func saveRecording(p *pad.Pad, path string) error {
	return strokes.WriteFile(path, p.Recording())
}

func readRecording(path string) (strokes.Recording, error) {
	return strokes.ReadFile(path)
}

func saveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "save",
		Help:      "save the strokes: save file.strokes",
		Completer: fileCompleter(strokesExt),
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("missing destination file"))
				return
			}
			path := c.Args[0]
			if filepath.Ext(path) == "" {
				path += strokesExt
			}
			if err := saveRecording(ctx.Pad, path); err != nil {
				c.Err(err)
				return
			}
			c.Printf("saved %s\n", path)
		},
	}
}

func loadCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "load",
		Help:      "replay saved strokes: load file.strokes",
		Completer: fileCompleter(strokesExt),
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("missing source file"))
				return
			}
			rec, err := readRecording(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			prediction, err := ctx.Pad.Replay(ctx.context(), rec)
			printPrediction(c, ctx, outcome{prediction, err})
		},
	}
}

// exportPad writes one of the pad surfaces as png, or the report sheet as pdf.
func exportPad(p *pad.Pad, path, format, surfaceName string) error {
	switch format {
	case "pdf":
		sheet := report.Sheet{
			Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Recording:  p.Recording(),
			Model:      p.Downsampled(),
			Prediction: p.Prediction(),
		}
		return report.GenerateFile(path, sheet)
	case "png":
		var img image.Image
		switch surfaceName {
		case "drawing":
			img = p.Canvas()
		case "downsampled":
			img = p.Downsampled()
		case "preview":
			img = p.Preview()
		default:
			return errors.Errorf("unknown surface %q", surfaceName)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			return err
		}
		log.Trace.Printf("wrote %s surface to %s", surfaceName, path)
		return f.Close()
	}
	return errors.Errorf("unsupported format %q", format)
}

func exportCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:     "export",
		Help:     "export the drawing: export [-f png|pdf] [-s drawing|downsampled|preview] file",
		LongHelp: "Usage: export [-f png|pdf] [-s drawing|downsampled|preview] file\n\nWrites a surface as png, or a one page report with the strokes, the\nmodel input and the prediction as pdf. The format defaults to the\nfile extension.",
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("export", flag.ContinueOnError)
			format := flagSet.String("f", "", "png or pdf")
			surfaceName := flagSet.String("s", "drawing", "surface for png exports")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}
			if flagSet.NArg() != 1 {
				c.Err(errors.New("missing destination file"))
				return
			}
			path := flagSet.Arg(0)
			if *format == "" {
				*format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
			}
			if err := exportPad(ctx.Pad, path, *format, *surfaceName); err != nil {
				c.Err(err)
				return
			}
			c.Printf("exported %s\n", path)
		},
	}
}
