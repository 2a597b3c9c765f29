// Package inference submits tensors to an external inference engine and turns
// its score vectors into digit predictions.
package inference

import (
	"context"

	"github.com/digitpad/digitpad/tensor"
)

// Inputs maps graph input names to tensors.
type Inputs map[string]*tensor.Tensor

// Outputs maps graph output names to flat, unnormalized class scores.
type Outputs map[string][]float32

// Engine is the runtime that actually evaluates the model. Both calls may
// block; neither is retried.
type Engine interface {
	Load(ctx context.Context, modelURL string) error
	Run(ctx context.Context, inputs Inputs) (Outputs, error)
}
