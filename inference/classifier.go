package inference

import (
	"context"
	"sort"
	"sync"

	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/tensor"
	"github.com/pkg/errors"
)

var (
	ErrModelNotReady    = errors.New("model is still loading")
	ErrModelUnavailable = errors.New("model failed to load")
	ErrMissingOutput    = errors.New("output not found")
	ErrEmptyOutput      = errors.New("empty output")
	ErrNoFiniteScore    = errors.New("no comparable score in output")
)

// loadError keeps the engine failure reachable through Unwrap while
// errors.Cause and errors.Is still report ErrModelUnavailable.
type loadError struct {
	err error
}

func (e *loadError) Error() string {
	return ErrModelUnavailable.Error() + ": " + e.err.Error()
}

func (e *loadError) Cause() error {
	return ErrModelUnavailable
}

func (e *loadError) Unwrap() error {
	return e.err
}

func (e *loadError) Is(target error) bool {
	return target == ErrModelUnavailable
}

type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Classifier wraps an engine with the model location and the names of the
// graph tensors it exchanges.
type Classifier struct {
	engine     Engine
	modelURL   string
	inputName  string
	outputName string

	once    sync.Once
	mu      sync.RWMutex
	state   State
	loadErr error
}

// NewClassifier returns a classifier in the Loading state. An empty
// outputName selects the first output by name.
func NewClassifier(engine Engine, modelURL, inputName, outputName string) *Classifier {
	return &Classifier{
		engine:     engine,
		modelURL:   modelURL,
		inputName:  inputName,
		outputName: outputName,
	}
}

// Load fetches the model once; concurrent and later calls wait for that
// attempt and share its result. A failure is logged and leaves the classifier
// unusable for the rest of its life.
func (c *Classifier) Load(ctx context.Context) error {
	c.once.Do(func() {
		err := c.engine.Load(ctx, c.modelURL)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			log.Error.Printf("couldn't load model %s: %v", c.modelURL, err)
			c.state = Failed
			c.loadErr = &loadError{err: err}
			return
		}
		log.Info.Printf("model loaded: %s", c.modelURL)
		c.state = Ready
	})
	return c.Err()
}

// Start loads the model in the background. The returned channel is closed
// once loading has finished either way.
func (c *Classifier) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Load(ctx)
	}()
	return done
}

func (c *Classifier) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the load error, if any.
func (c *Classifier) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

func (c *Classifier) ModelURL() string {
	return c.modelURL
}

// Classify runs the model on t and returns the arg-max of its output.
func (c *Classifier) Classify(ctx context.Context, t *tensor.Tensor) (Prediction, error) {
	switch c.State() {
	case Loading:
		return NoPrediction, ErrModelNotReady
	case Failed:
		return NoPrediction, c.Err()
	}

	outputs, err := c.engine.Run(ctx, Inputs{c.inputName: t})
	if err != nil {
		log.Error.Printf("inference failed: %v", err)
		return NoPrediction, errors.Wrap(err, "inference failed")
	}

	scores, err := c.pick(outputs)
	if err != nil {
		log.Error.Printf("inference failed: %v", err)
		return NoPrediction, err
	}

	if len(scores) == 0 {
		return NoPrediction, ErrEmptyOutput
	}
	idx := ArgMax(scores)
	if idx < 0 {
		return NoPrediction, errors.Wrapf(ErrNoFiniteScore, "%d NaN scores", len(scores))
	}
	log.Trace.Printf("scores %v -> %d", scores, idx)
	return Prediction(idx), nil
}

func (c *Classifier) pick(outputs Outputs) ([]float32, error) {
	if c.outputName != "" {
		scores, ok := outputs[c.outputName]
		if !ok {
			return nil, errors.Wrapf(ErrMissingOutput, "%q not in %v", c.outputName, names(outputs))
		}
		return scores, nil
	}
	keys := names(outputs)
	if len(keys) == 0 {
		return nil, errors.Wrap(ErrMissingOutput, "engine returned no outputs")
	}
	return outputs[keys[0]], nil
}

func names(outputs Outputs) []string {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
