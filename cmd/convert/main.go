package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/digitpad/digitpad/config"
	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/inference/remote"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/report"
	"golang.org/x/sync/errgroup"
)

type inputs []string

func (i *inputs) String() string {
	return strings.Join(*i, ",")
}

func (i *inputs) Set(v string) error {
	*i = append(*i, v)
	return nil
}

func main() {
	var inputNames inputs
	flag.Var(&inputNames, "i", "recording to convert, may be repeated")
	outputName := flag.String("o", "", "output filename, only with a single input")
	extract := flag.String("e", "pdf", "extract: pdf, png (downsampled model input) or tensor (json)")
	flag.Parse()

	inputNames = append(inputNames, flag.Args()...)
	if err := run(inputNames, *outputName, *extract); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputNames []string, outputName, extract string) error {
	if len(inputNames) == 0 {
		return errors.New("missing input file")
	}
	if outputName != "" && len(inputNames) > 1 {
		return errors.New("-o only works with a single input")
	}
	switch extract {
	case "pdf", "png", "tensor":
	default:
		return fmt.Errorf("unknown extract %q", extract)
	}

	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	options, err := pad.OptionsFrom(cfg.Canvas)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var predictor pad.Predictor
	if cfg.Model.URL != "" {
		classifier, _ := remote.NewClassifier(cfg.Model)
		if err := classifier.Load(ctx); err != nil {
			return err
		}
		predictor = classifier
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, inputName := range inputNames {
		inputName := inputName
		g.Go(func() error {
			return convert(ctx, options, predictor, inputName, outputName, extract)
		})
	}
	return g.Wait()
}

func convert(ctx context.Context, options pad.Options, predictor pad.Predictor, inputName, outputName, extract string) error {
	ext := extract
	if extract == "tensor" {
		ext = "json"
	}
	if outputName == "" {
		nameOnly := strings.TrimSuffix(inputName, filepath.Ext(inputName))
		outputName = nameOnly + "." + ext
	}

	rec, err := strokes.ReadFile(inputName)
	if err != nil {
		return err
	}

	p, err := pad.New(options, predictor)
	if err != nil {
		return err
	}
	defer p.Close()

	prediction, err := p.Replay(ctx, rec)
	if err != nil {
		return fmt.Errorf("can't replay %s: %w", inputName, err)
	}

	switch extract {
	case "pdf":
		return report.GenerateFile(outputName, report.Sheet{
			Title:      filepath.Base(inputName),
			Recording:  rec,
			Model:      p.Downsampled(),
			Prediction: prediction,
		})
	case "png":
		return writeFile(outputName, func(f *os.File) error {
			return png.Encode(f, p.Downsampled())
		})
	case "tensor":
		t, err := p.Tensor()
		if err != nil {
			return err
		}
		return writeFile(outputName, func(f *os.File) error {
			return json.NewEncoder(f).Encode(struct {
				Prediction inference.Prediction `json:"prediction"`
				Tensor     interface{}          `json:"tensor"`
			}{prediction, t})
		})
	}
	return fmt.Errorf("unknown extract %q", extract)
}

func writeFile(name string, write func(*os.File) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("can't create outputfile %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
