// Package report renders a drawing session to a one-page PDF: the strokes as
// vector paths, the raster the model saw, and its answer.
package report

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/inference"
	"github.com/pkg/errors"
	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/contentstream/draw"
	"github.com/unidoc/unipdf/v3/creator"
)

const (
	margin  = 50.0
	boxSize = 230.0
	gap     = 35.0
	boxTop  = 120.0
)

// Sheet is everything that goes on the page.
type Sheet struct {
	Title      string
	Recording  strokes.Recording
	Model      image.Image
	Prediction inference.Prediction
}

func GenerateFile(path string, sheet Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Generate(f, sheet); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func Generate(w io.Writer, sheet Sheet) error {
	if sheet.Recording.Side <= 0 {
		return errors.Errorf("invalid recording side %d", sheet.Recording.Side)
	}

	c := creator.New()
	c.SetPageSize(creator.PageSizeA4)
	page := c.NewPage()

	title := sheet.Title
	if title == "" {
		title = "digitpad"
	}
	heading := c.NewParagraph(title)
	heading.SetFontSize(20)
	heading.SetPos(margin, margin)
	if err := c.Draw(heading); err != nil {
		return err
	}

	for _, box := range []float64{margin, margin + boxSize + gap} {
		rect := c.NewRectangle(box, boxTop, boxSize, boxSize)
		rect.SetFillColor(creator.ColorBlack)
		rect.SetBorderWidth(0)
		if err := c.Draw(rect); err != nil {
			return err
		}
	}

	ops := strokeOps(sheet.Recording, margin, boxTop, boxSize, c.Height())
	if err := page.AppendContentStream(string(ops.Bytes())); err != nil {
		return errors.Wrap(err, "append strokes")
	}

	if sheet.Model != nil {
		img, err := c.NewImageFromGoImage(sheet.Model)
		if err != nil {
			return errors.Wrap(err, "model input image")
		}
		img.ScaleToWidth(boxSize)
		img.SetPos(margin+boxSize+gap, boxTop)
		if err := c.Draw(img); err != nil {
			return err
		}
	}

	labels := []struct {
		text string
		x    float64
	}{
		{"Drawing", margin},
		{"Model input", margin + boxSize + gap},
	}
	for _, l := range labels {
		p := c.NewParagraph(l.text)
		p.SetFontSize(10)
		p.SetPos(l.x, boxTop+boxSize+8)
		if err := c.Draw(p); err != nil {
			return err
		}
	}

	result := c.NewParagraph(fmt.Sprintf("Prediction: %s", sheet.Prediction))
	result.SetFontSize(28)
	result.SetPos(margin, boxTop+boxSize+50)
	if err := c.Draw(result); err != nil {
		return err
	}

	footer := c.NewParagraph(fmt.Sprintf("%d strokes, %d points, canvas %dpx",
		len(sheet.Recording.Strokes), sheet.Recording.NbPoints(), sheet.Recording.Side))
	footer.SetFontSize(8)
	footer.SetPos(margin, boxTop+boxSize+100)
	if err := c.Draw(footer); err != nil {
		return err
	}

	return c.Write(w)
}

// strokeOps draws every stroke into the square at (x, top) of the given size.
// PDF user space grows upwards, so y is flipped against the page height.
func strokeOps(rec strokes.Recording, x, top, size, pageHeight float64) *contentstream.ContentStreamOperations {
	ratio := size / float64(rec.Side)
	cc := contentstream.NewContentCreator()

	for _, s := range rec.Strokes {
		if len(s.Points) == 0 {
			continue
		}
		r, g, b := channels(s.Color)

		path := draw.NewPath()
		for _, pt := range s.Points {
			px := x + float64(pt.X)*ratio
			py := pageHeight - (top + float64(pt.Y)*ratio)
			path = path.AppendPoint(draw.NewPoint(px, py))
		}
		// a single point still leaves a dot, like the round cap on canvas
		if len(s.Points) == 1 {
			path = path.AppendPoint(path.Points[0])
		}

		cc.Add_q()
		cc.Add_w(float64(s.Width) * ratio)
		cc.Add_RG(r, g, b)
		draw.DrawPathWithCreator(path, cc)
		cc.Add_S()
		cc.Add_Q()
	}
	return cc.Operations()
}

func channels(packed uint32) (float64, float64, float64) {
	return float64(packed>>24&0xff) / 255, float64(packed>>16&0xff) / 255, float64(packed>>8&0xff) / 255
}
