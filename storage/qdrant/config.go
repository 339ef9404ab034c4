package qdrant

import (
	"errors"
	"fmt"
)

const (
	DefaultHost       = "localhost"
	DefaultPort       = 6334
	DefaultCollection = "vectors"
)

// ErrInvalidConfig indicates a Config without a usable dimension or collection.
var ErrInvalidConfig = errors.New("invalid qdrant config")

// Config locates the collection a Store reads and writes.
type Config struct {
	// Host of the qdrant gRPC endpoint. Default: "localhost"
	Host string `yaml:"host"`

	// Port of the gRPC endpoint. Default: 6334
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`

	// Collection name. Default: "vectors"
	Collection string `yaml:"collection"`

	// Dimension is the collection's vector size.
	Dimension int `yaml:"dimension" validate:"gt=0"`
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	return c
}

func (c Config) validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d must be positive", ErrInvalidConfig, c.Dimension)
	}
	return nil
}
