package inference

import (
	"math"
	"strconv"
)

// Prediction is the predicted class index.
type Prediction int

// NoPrediction is published before anything was drawn and after a clear.
const NoPrediction Prediction = -1

const Placeholder = "Draw a number for prediction."

func (p Prediction) Valid() bool {
	return p >= 0
}

func (p Prediction) String() string {
	if !p.Valid() {
		return Placeholder
	}
	return strconv.Itoa(int(p))
}

// ArgMax returns the index of the first largest score, or -1 for an empty
// vector. NaN never wins.
func ArgMax(scores []float32) int {
	best, idx := float32(math.Inf(-1)), -1
	for i, s := range scores {
		if s > best || (idx == -1 && !isNaN(s)) {
			best, idx = s, i
		}
	}
	return idx
}

func isNaN(f float32) bool {
	return f != f
}
