// Package remote is an inference.Engine talking to a model server over the
// Open Inference Protocol, e.g. Triton, KServe or MLServer serving the ONNX
// MNIST model.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digitpad/digitpad/config"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/log"
	jwt "github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
)

const (
	datatypeFP32 = "FP32"
	tokenTTL     = 5 * time.Minute
	tokenSubject = "digitpad"
)

var ErrInputNotServed = errors.New("input not served by model")

// Client implements inference.Engine.
type Client struct {
	http       *http.Client
	inputName  string
	signingKey []byte

	modelURL string
	metadata *ModelMetadata
}

var _ inference.Engine = (*Client)(nil)

// New builds a client from the model settings. A zero timeout means requests
// only end when their context does.
func New(cfg config.Model) *Client {
	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		inputName: cfg.InputName,
	}
	if cfg.SigningKey != "" {
		c.signingKey = []byte(cfg.SigningKey)
	}
	return c
}

// NewClassifier wires a client for cfg into a classifier. The caller starts
// loading.
func NewClassifier(cfg config.Model) (*inference.Classifier, *Client) {
	client := New(cfg)
	return inference.NewClassifier(client, cfg.URL, cfg.InputName, cfg.OutputName), client
}

// Load checks that the model at modelURL is ready and that it accepts the
// configured input tensor.
func (c *Client) Load(ctx context.Context, modelURL string) error {
	if modelURL == "" {
		return errors.New("no model url configured")
	}
	modelURL = strings.TrimSuffix(modelURL, "/")

	if _, err := c.send(ctx, http.MethodGet, modelURL+"/ready", nil); err != nil {
		return errors.Wrap(err, "model not ready")
	}

	body, err := c.send(ctx, http.MethodGet, modelURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to fetch model metadata")
	}
	var md ModelMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		return errors.Wrap(err, "failed to decode model metadata")
	}

	if c.inputName != "" && len(md.Inputs) > 0 {
		served := make([]string, 0, len(md.Inputs))
		found := false
		for _, in := range md.Inputs {
			served = append(served, in.Name)
			found = found || in.Name == c.inputName
		}
		if !found {
			return errors.Wrapf(ErrInputNotServed, "%q, model %s has %v", c.inputName, md.Name, served)
		}
	}

	log.Trace.Printf("model %s (%s) inputs %v outputs %v", md.Name, md.Platform, md.Inputs, md.Outputs)
	c.modelURL = modelURL
	c.metadata = &md
	return nil
}

// Metadata returns what the server reported on Load, nil before.
func (c *Client) Metadata() *ModelMetadata {
	return c.metadata
}

// Run sends every input as an FP32 tensor and returns the outputs by name.
func (c *Client) Run(ctx context.Context, inputs inference.Inputs) (inference.Outputs, error) {
	if c.modelURL == "" {
		return nil, errors.New("model not loaded")
	}

	req := InferRequest{Inputs: make([]InferTensor, 0, len(inputs))}
	for name, t := range inputs {
		req.Inputs = append(req.Inputs, InferTensor{
			Name:     name,
			Shape:    t.Shape,
			Datatype: datatypeFP32,
			Data:     t.Data,
		})
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	body, err := c.send(ctx, http.MethodPost, c.modelURL+"/infer", data)
	if err != nil {
		return nil, err
	}

	var res InferResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.Wrap(err, "failed to decode inference response")
	}

	outputs := make(inference.Outputs, len(res.Outputs))
	for _, out := range res.Outputs {
		outputs[out.Name] = out.Data
	}
	return outputs, nil
}

func (c *Client) send(ctx context.Context, method, url string, data []byte) ([]byte, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.signingKey != nil {
		token, err := c.token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if res.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, errors.Errorf("API error: Status %d, %s", res.StatusCode, apiErr.Error)
		}
		return nil, errors.Errorf("API error: Status %d, Response: %s", res.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) token() (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   tokenSubject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return token, nil
}
