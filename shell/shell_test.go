package shell

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abiosoft/ishell"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/surface"
	"github.com/digitpad/digitpad/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

var testOptions = pad.Options{
	Side:  112,
	Block: 28,
	Style: surface.Style{Width: 8, Color: color.White},
}

type fakeEngine struct {
	scores []float32
}

func (e *fakeEngine) Load(ctx context.Context, modelURL string) error {
	return nil
}

func (e *fakeEngine) Run(ctx context.Context, inputs inference.Inputs) (inference.Outputs, error) {
	return inference.Outputs{"out": e.scores}, nil
}

func readyClassifier(t *testing.T, best int) *inference.Classifier {
	scores := make([]float32, 10)
	scores[best] = 1
	c := inference.NewClassifier(&fakeEngine{scores: scores}, "http://model", "in", "out")
	require.NoError(t, c.Load(context.Background()))
	return c
}

func newShellCtxt(t *testing.T, c *inference.Classifier) *ShellCtxt {
	ctx := &ShellCtxt{Classifier: c, Options: testOptions}
	p, err := pad.New(testOptions, ctx.predictor())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	ctx.Pad = p
	return ctx
}

func diagonal() []surface.Point {
	return []surface.Point{{X: 20, Y: 20}, {X: 50, Y: 50}, {X: 90, Y: 90}}
}

func TestParsePoints(t *testing.T) {
	points, err := parsePoints([]string{"1", "2.5", "30", "40"})
	require.NoError(t, err)
	assert.Equal(t, []surface.Point{{X: 1, Y: 2.5}, {X: 30, Y: 40}}, points)

	_, err = parsePoints([]string{"1", "2", "3"})
	assert.Error(t, err)
	_, err = parsePoints(nil)
	assert.Error(t, err)
	_, err = parsePoints([]string{"x", "2"})
	assert.Error(t, err)

	pt, err := parsePoint([]string{"7", "8"})
	require.NoError(t, err)
	assert.Equal(t, surface.Point{X: 7, Y: 8}, pt)
	_, err = parsePoint([]string{"7", "8", "9", "10"})
	assert.Error(t, err)
}

func TestPredictorNilClassifier(t *testing.T) {
	ctx := &ShellCtxt{}
	assert.Nil(t, ctx.predictor())
	assert.NotNil(t, ctx.context())
}

func TestDrawStrokeAndRelease(t *testing.T) {
	ctx := newShellCtxt(t, readyClassifier(t, 6))

	require.NoError(t, drawStroke(ctx.Pad, diagonal()))
	assert.True(t, ctx.Pad.Drawing())

	o := release(ctx)
	require.NoError(t, o.err)
	assert.Equal(t, inference.Prediction(6), o.prediction)
	assert.False(t, ctx.Pad.Drawing())
	assert.Len(t, ctx.Pad.Recording().Strokes, 1)
}

// printed captures what a command writes; the rest of ishell.Actions is not
// used by the helpers under test.
type printed struct {
	ishell.Actions
	lines []string
}

func (p *printed) Println(val ...interface{}) {
	p.lines = append(p.lines, strings.TrimSuffix(fmt.Sprintln(val...), "\n"))
}

func TestPrintPrediction(t *testing.T) {
	ctx := newShellCtxt(t, readyClassifier(t, 4))

	out := &printed{}
	printPrediction(&ishell.Context{Actions: out}, ctx, outcome{prediction: 4})
	assert.Equal(t, []string{"4"}, out.lines)

	out = &printed{}
	printPrediction(&ishell.Context{Actions: out}, ctx, outcome{prediction: 4, err: inference.ErrModelNotReady})
	assert.Empty(t, out.lines)

	out = &printed{}
	printPrediction(&ishell.Context{Actions: out}, ctx, outcome{prediction: 4, err: errors.Wrap(pad.ErrSuperseded, "late")})
	assert.Empty(t, out.lines)

	offline := newShellCtxt(t, nil)
	out = &printed{}
	printPrediction(&ishell.Context{Actions: out}, offline, outcome{prediction: inference.NoPrediction})
	assert.Equal(t, []string{errNoModel.Error()}, out.lines)
}

func TestParsePointsRejectsNonFinite(t *testing.T) {
	_, err := parsePoints([]string{"NaN", "1"})
	assert.Error(t, err)
	_, err = parsePoints([]string{"1", "+Inf"})
	assert.Error(t, err)
}

func TestASCII(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Gray{Y: 128})
	for x := 0; x < 3; x++ {
		img.Set(x, 1, color.Black)
	}

	out := ascii(img)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "@@", lines[0][:2])
	assert.Equal(t, "  ", lines[0][4:])
	assert.Equal(t, "      ", lines[1])
	assert.NotEqual(t, "  ", lines[0][2:4])
}

func TestStatus(t *testing.T) {
	offline := newShellCtxt(t, nil)
	s := status(offline)
	assert.Contains(t, s, "model:      none")
	assert.Contains(t, s, "112x112 -> 28x28")
	assert.Contains(t, s, inference.Placeholder)

	online := newShellCtxt(t, readyClassifier(t, 2))
	require.NoError(t, drawStroke(online.Pad, diagonal()))
	release(online)
	s = status(online)
	assert.Contains(t, s, "http://model (ready)")
	assert.Contains(t, s, "strokes:    1 (3 points)")
	assert.Contains(t, s, "prediction: 2")
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "three.strokes")

	ctx := newShellCtxt(t, readyClassifier(t, 3))
	require.NoError(t, drawStroke(ctx.Pad, diagonal()))
	release(ctx)
	want, err := ctx.Pad.Tensor()
	require.NoError(t, err)
	require.NoError(t, saveRecording(ctx.Pad, path))

	rec, err := readRecording(path)
	require.NoError(t, err)
	assert.Equal(t, ctx.Pad.Recording(), rec)

	other := newShellCtxt(t, readyClassifier(t, 3))
	prediction, err := other.Pad.Replay(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, inference.Prediction(3), prediction)
	got, err := other.Pad.Tensor()
	require.NoError(t, err)
	assert.Equal(t, want.Data, got.Data)
}

func TestReadRecordingGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.strokes")
	require.NoError(t, ioutil.WriteFile(path, []byte("not a recording"), 0644))

	_, err := readRecording(path)
	assert.Error(t, err)
	_, err = readRecording(filepath.Join(t.TempDir(), "missing.strokes"))
	assert.Error(t, err)
}

func TestExportPNG(t *testing.T) {
	dir := t.TempDir()
	ctx := newShellCtxt(t, nil)
	require.NoError(t, drawStroke(ctx.Pad, diagonal()))
	release(ctx)

	sizes := map[string]int{"drawing": 112, "downsampled": 28, "preview": 112}
	for name, size := range sizes {
		path := filepath.Join(dir, name+".png")
		require.NoError(t, exportPad(ctx.Pad, path, "png", name))

		data, err := ioutil.ReadFile(path)
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, size, size), img.Bounds(), name)
	}

	assert.Error(t, exportPad(ctx.Pad, filepath.Join(dir, "x.png"), "png", "tensor"))
	assert.Error(t, exportPad(ctx.Pad, filepath.Join(dir, "x.gif"), "gif", "drawing"))
}

func TestExportPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.pdf")
	ctx := newShellCtxt(t, readyClassifier(t, 1))
	require.NoError(t, drawStroke(ctx.Pad, diagonal()))
	release(ctx)

	require.NoError(t, exportPad(ctx.Pad, path, "pdf", ""))
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

type countingPredictor struct{}

// Classify answers the number of lit model pixels, capped at 9.
func (countingPredictor) Classify(ctx context.Context, t *tensor.Tensor) (inference.Prediction, error) {
	n := 0
	for _, v := range t.Data {
		if v > 0 {
			n++
		}
	}
	if n > 9 {
		n = 9
	}
	return inference.Prediction(n), nil
}

func TestClassifyFiles(t *testing.T) {
	dir := t.TempDir()

	drawn := newShellCtxt(t, nil)
	require.NoError(t, drawStroke(drawn.Pad, diagonal()))
	release(drawn)
	stroked := filepath.Join(dir, "stroked.strokes")
	require.NoError(t, saveRecording(drawn.Pad, stroked))

	empty := filepath.Join(dir, "empty.strokes")
	require.NoError(t, saveRecording(newShellCtxt(t, nil).Pad, empty))

	missing := filepath.Join(dir, "missing.strokes")

	files := []string{stroked, empty, missing, stroked}
	results := classifyFiles(context.Background(), testOptions, countingPredictor{}, files, 2)
	require.Len(t, results, len(files))

	for i, r := range results {
		assert.Equal(t, files[i], r.File)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, inference.Prediction(9), results[0].Prediction)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, inference.NoPrediction, results[1].Prediction)
	assert.Error(t, results[2].Err)
	assert.Equal(t, results[0], results[3])
}

func TestClassifyFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := classifyFiles(ctx, testOptions, countingPredictor{}, []string{"a.strokes", "b.strokes"}, 0)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}
