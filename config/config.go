// Package config loads digitpad settings from a YAML file, the environment
// and command-line flags, in that order of increasing precedence.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/surface"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const (
	defaultConfigFile = "config.yaml"
	appFolder         = "digitpad"
	fallbackFolder    = ".digitpad"

	EnvConfig     = "DIGITPAD_CONFIG"
	EnvModelURL   = "DIGITPAD_MODEL_URL"
	EnvModelKey   = "DIGITPAD_MODEL_KEY"
	EnvInputName  = "DIGITPAD_INPUT_NAME"
	EnvOutputName = "DIGITPAD_OUTPUT_NAME"
	EnvPort       = "DIGITPAD_PORT"
)

// Canvas describes the drawing surface and the raster fed to the model.
type Canvas struct {
	Side       int     `yaml:"side"`
	Block      int     `yaml:"block"`
	LineWidth  float64 `yaml:"lineWidth"`
	Stroke     string  `yaml:"stroke"`
	Background string  `yaml:"background"`
	Filter     string  `yaml:"filter"`
}

// Model points at the inference endpoint. InputName and OutputName must match
// the graph signature of the served model exactly.
type Model struct {
	URL        string        `yaml:"url"`
	InputName  string        `yaml:"inputName"`
	OutputName string        `yaml:"outputName"`
	SigningKey string        `yaml:"signingKey,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

type Server struct {
	Port string `yaml:"port"`
}

type Config struct {
	Canvas Canvas `yaml:"canvas"`
	Model  Model  `yaml:"model"`
	Server Server `yaml:"server"`
}

// Default returns the settings of the reference page: a 336px square (12
// blocks of 28) drawn white on black and reduced to the 28x28 input of the
// ONNX model zoo MNIST network.
func Default() *Config {
	return &Config{
		Canvas: Canvas{
			Side:       28 * 12,
			Block:      28,
			LineWidth:  20,
			Stroke:     "#ffffff",
			Background: "#000000",
			Filter:     string(surface.FilterArea),
		},
		Model: Model{
			InputName:  "Input3",
			OutputName: "Plus214_Output_0",
		},
		Server: Server{
			Port: "6060",
		},
	}
}

// Path returns the location of the config file, honouring DIGITPAD_CONFIG.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, fallbackFolder, defaultConfigFile), nil
	}
	return filepath.Join(dir, appFolder, defaultConfigFile), nil
}

// Load reads the file at path on top of the defaults and applies the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := ioutil.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Trace.Printf("config file %s not found, using defaults", path)
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		default:
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config %s", path)
			}
			log.Trace.Printf("config loaded: %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Model.URL, EnvModelURL)
	override(&c.Model.SigningKey, EnvModelKey)
	override(&c.Model.InputName, EnvInputName)
	override(&c.Model.OutputName, EnvOutputName)
	override(&c.Server.Port, EnvPort)
}

// Validate rejects settings that would make the pipeline meaningless, most
// importantly a zero block size (the scale factor would be zero) or a block
// larger than the drawing surface.
func (c *Config) Validate() error {
	if _, err := surface.Scale(c.Canvas.Block, c.Canvas.Side); err != nil {
		return errors.Wrapf(err, "canvas block %d, side %d", c.Canvas.Block, c.Canvas.Side)
	}
	if !surface.ValidWidth(c.Canvas.LineWidth) {
		return errors.Errorf("canvas line width must be positive, got %v", c.Canvas.LineWidth)
	}
	if _, err := surface.ParseFilter(c.Canvas.Filter); err != nil {
		return err
	}
	if _, err := surface.ParseColor(c.Canvas.Stroke); err != nil {
		return errors.Wrap(err, "canvas stroke")
	}
	if _, err := surface.ParseColor(c.Canvas.Background); err != nil {
		return errors.Wrap(err, "canvas background")
	}
	if c.Model.InputName == "" {
		return errors.New("model input name is required")
	}
	if c.Model.Timeout < 0 {
		return errors.Errorf("model timeout must not be negative, got %s", c.Model.Timeout)
	}
	return nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	content, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, content, 0600)
}
