// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Provider names understood by the embedder factory.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds configuration for embedding providers.
type Config struct {
	// Provider selects the implementation: "mock", "openai" or "ollama".
	// Default: "mock"
	Provider string `yaml:"provider" validate:"required,oneof=mock openai ollama"`

	// Host is the base URL of the embedding service.
	// Example: "http://localhost:11434" for a local Ollama server
	Host string `yaml:"host" validate:"omitempty,url"`

	// Model is the embedding model identifier.
	// Example: "nomic-embed-text:v1.5", "text-embedding-3-small"
	Model string `yaml:"model"`

	// APIKey is sent to OpenAI-compatible services. Local servers accept any value.
	APIKey string `yaml:"api_key"`

	// Dimension is the vector length the model produces.
	// Default: 768
	Dimension int `yaml:"dimension" validate:"gt=0"`

	// BatchSize caps the number of texts sent per request. Zero disables batching.
	// Default: 50
	BatchSize int `yaml:"batch_size" validate:"gte=0"`

	// Concurrency is the number of batches in flight at once.
	// Default: 1
	Concurrency int `yaml:"concurrency" validate:"gte=1"`

	// RequestsPerSecond limits request rate. Zero means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider name.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key for OpenAI-compatible services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimension sets the expected vector dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithBatchSize sets the maximum texts per request.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithConcurrency sets the number of concurrent batches.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithRateLimit sets the maximum requests per second.
func WithRateLimit(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config for the offline mock provider with settings
// that also suit a local Ollama server.
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderMock,
		Host:        "http://localhost:11434",
		Model:       "nomic-embed-text:v1.5",
		Dimension:   768,
		BatchSize:   50,
		Concurrency: 1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithProvider(ProviderOpenAI),
//       WithHost("http://localhost:11434/v1"),
//       WithModel("text-embedding-3-small"),
//       WithDimension(1536),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix; Ollama hosts lose it, since the
// native API lives at the server root.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Host == "" {
		return
	}
	host := strings.TrimSuffix(c.Host, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	case ProviderOllama:
		host = strings.TrimSuffix(host, "/v1")
	}
	c.Host = host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderMock:
	case ProviderOpenAI, ProviderOllama:
		if c.Host == "" {
			return errors.New("ai config: Host is required")
		}
		if c.Model == "" {
			return errors.New("ai config: Model is required")
		}
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Dimension <= 0 {
		return errors.New("ai config: Dimension must be positive")
	}
	if c.BatchSize < 0 {
		return errors.New("ai config: BatchSize must not be negative")
	}
	if c.Concurrency < 1 {
		return errors.New("ai config: Concurrency must be at least 1")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond must not be negative")
	}
	return nil
}
