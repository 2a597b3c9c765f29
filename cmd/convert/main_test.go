package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

var options = pad.Options{
	Side:  56,
	Block: 28,
	Style: surface.Style{Width: 4, Color: color.White},
}

func writeRecording(t *testing.T, dir string) string {
	rec := strokes.Recording{
		Side: 112,
		Strokes: []strokes.Stroke{{
			Width:  8,
			Color:  strokes.PackColor(color.White),
			Points: []strokes.Point{{X: 10, Y: 10}, {X: 100, Y: 100}},
		}},
	}
	path := filepath.Join(dir, "one.strokes")
	require.NoError(t, strokes.WriteFile(path, rec))
	return path
}

func TestConvertPNG(t *testing.T) {
	dir := t.TempDir()
	input := writeRecording(t, dir)

	require.NoError(t, convert(context.Background(), options, nil, input, "", "png"))

	data, err := ioutil.ReadFile(filepath.Join(dir, "one.png"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 28, 28), img.Bounds())
}

func TestConvertTensor(t *testing.T) {
	dir := t.TempDir()
	input := writeRecording(t, dir)
	output := filepath.Join(dir, "out.json")

	require.NoError(t, convert(context.Background(), options, nil, input, output, "tensor"))

	data, err := ioutil.ReadFile(output)
	require.NoError(t, err)
	var got struct {
		Prediction inference.Prediction `json:"prediction"`
		Tensor     struct {
			Shape []int     `json:"shape"`
			Data  []float32 `json:"data"`
		} `json:"tensor"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, inference.NoPrediction, got.Prediction)
	assert.Equal(t, []int{1, 1, 28, 28}, got.Tensor.Shape)
	assert.Len(t, got.Tensor.Data, 28*28)
	assert.NotZero(t, got.Tensor.Data[14*28+14])
}

func TestConvertPDF(t *testing.T) {
	dir := t.TempDir()
	input := writeRecording(t, dir)

	require.NoError(t, convert(context.Background(), options, nil, input, "", "pdf"))

	data, err := ioutil.ReadFile(filepath.Join(dir, "one.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestConvertMissingInput(t *testing.T) {
	err := convert(context.Background(), options, nil, filepath.Join(t.TempDir(), "none.strokes"), "", "png")
	assert.Error(t, err)
}

func TestRunArguments(t *testing.T) {
	assert.Error(t, run(nil, "", "pdf"))
	assert.Error(t, run([]string{"a", "b"}, "out.pdf", "pdf"))
	assert.Error(t, run([]string{"a"}, "", "gif"))
}

func TestInputsFlag(t *testing.T) {
	var i inputs
	require.NoError(t, i.Set("a.strokes"))
	require.NoError(t, i.Set("b.strokes"))
	assert.Equal(t, "a.strokes,b.strokes", i.String())
}
