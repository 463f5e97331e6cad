package config

import (
	"fmt"
	"strings"
	"time"
)

// LLMConfig configures the model endpoint.
type LLMConfig struct {
	APIBase string         `yaml:"api_base"`
	Model   string         `yaml:"model"`
	Timeout string         `yaml:"timeout"`
	Options SamplingConfig `yaml:"options"`
}

// SamplingConfig is forwarded verbatim as the request's options object.
type SamplingConfig struct {
	Temperature   float64 `yaml:"temperature" json:"temperature"`
	TopP          float64 `yaml:"top_p" json:"top_p"`
	TopK          int     `yaml:"top_k" json:"top_k"`
	NumPredict    int     `yaml:"num_predict" json:"num_predict"`
	RepeatPenalty float64 `yaml:"repeat_penalty" json:"repeat_penalty"`
}

// DefaultLLMConfig returns defaults suited to a local Ollama server.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIBase: "http://localhost:11434",
		Model:   "qwen2.5-coder:7b",
		Timeout: "300s",
		Options: SamplingConfig{
			Temperature:   0.1,
			TopP:          0.9,
			TopK:          40,
			NumPredict:    4096,
			RepeatPenalty: 1.1,
		},
	}
}

// GetTimeout returns the HTTP timeout for model calls.
func (c *LLMConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 300*time.Second)
}

// Validate checks the endpoint and every sampling option.
func (c *LLMConfig) Validate() error {
	if err := ValidateAPIBase(c.APIBase); err != nil {
		return err
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	o := c.Options
	if err := checkFloat("temperature", o.Temperature, 0, 2); err != nil {
		return err
	}
	if err := checkFloat("top_p", o.TopP, 0, 1); err != nil {
		return err
	}
	if err := checkInt("top_k", o.TopK, 1, 100); err != nil {
		return err
	}
	if err := checkInt("num_predict", o.NumPredict, 1, 8192); err != nil {
		return err
	}
	return checkFloat("repeat_penalty", o.RepeatPenalty, 0.5, 2.0)
}

// ValidateAPIBase requires an http or https URL.
func ValidateAPIBase(base string) error {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("api_base must start with http:// or https://, got %q", base)
	}
	return nil
}

// SetTemperature sets the temperature (0.0-2.0).
func (c *LLMConfig) SetTemperature(v float64) error {
	if err := checkFloat("temperature", v, 0, 2); err != nil {
		return err
	}
	c.Options.Temperature = v
	return nil
}

// SetTopP sets nucleus sampling (0.0-1.0).
func (c *LLMConfig) SetTopP(v float64) error {
	if err := checkFloat("top_p", v, 0, 1); err != nil {
		return err
	}
	c.Options.TopP = v
	return nil
}

// SetTopK sets top-k sampling (1-100).
func (c *LLMConfig) SetTopK(v int) error {
	if err := checkInt("top_k", v, 1, 100); err != nil {
		return err
	}
	c.Options.TopK = v
	return nil
}

// SetNumPredict sets the maximum tokens to generate (1-8192).
func (c *LLMConfig) SetNumPredict(v int) error {
	if err := checkInt("num_predict", v, 1, 8192); err != nil {
		return err
	}
	c.Options.NumPredict = v
	return nil
}

// SetRepeatPenalty sets the repetition penalty (0.5-2.0).
func (c *LLMConfig) SetRepeatPenalty(v float64) error {
	if err := checkFloat("repeat_penalty", v, 0.5, 2.0); err != nil {
		return err
	}
	c.Options.RepeatPenalty = v
	return nil
}

// SetAPIBase validates and stores the endpoint without a trailing slash.
func (c *LLMConfig) SetAPIBase(base string) error {
	if err := ValidateAPIBase(base); err != nil {
		return err
	}
	c.APIBase = strings.TrimRight(base, "/")
	return nil
}

func checkFloat(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %g and %g, got %g", name, lo, hi, v)
	}
	return nil
}

func checkInt(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, lo, hi, v)
	}
	return nil
}
