// Package config loads service configuration from YAML, a .env file and the
// environment.
//
// Load order: .env (if present) is loaded into the process environment,
// the YAML file is read with ${VAR} references expanded, well-known
// environment variables override individual fields, defaults fill the
// gaps and the result is validated.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/storage/pgvector"
	"github.com/poiesic/vectorize/storage/qdrant"
	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePgvector = "pgvector"
	StoreQdrant   = "qdrant"
)

// Status tracker types.
const (
	StatusMemory = "memory"
	StatusSQLite = "sqlite"
)

// Config is the complete service configuration.
type Config struct {
	Embedding ai.Config      `yaml:"embedding"`
	Store     StoreConfig    `yaml:"store"`
	Chunking  ChunkingConfig `yaml:"chunking"`
	OCR       OCRConfig      `yaml:"ocr"`
	Status    StatusConfig   `yaml:"status"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Type string `yaml:"type" validate:"oneof=memory badger pgvector qdrant"`

	// Path is the badger data directory.
	Path string `yaml:"path" validate:"required_if=Type badger"`

	Pgvector *pgvector.Config `yaml:"pgvector" validate:"required_if=Type pgvector"`
	Qdrant   *qdrant.Config   `yaml:"qdrant" validate:"required_if=Type qdrant"`
}

// ChunkingConfig forces one chunker for flat text. Empty selects by content.
type ChunkingConfig struct {
	Chunker string `yaml:"chunker" validate:"omitempty,oneof=fixed_size sentence_window paragraph_block simple sentence paragraph"`
}

// OCRConfig lists the OCR engines available to document ingestion.
type OCRConfig struct {
	// Default names the engine used when an ingest does not pick one.
	Default string `yaml:"default"`

	// Workers bounds concurrent recognitions. Default: 2
	Workers int `yaml:"workers" validate:"gte=1"`

	Engines map[string]OCREngineConfig `yaml:"engines" validate:"dive"`
}

// OCREngineConfig describes a command-line OCR engine. The program reads the
// image on stdin and writes text to stdout.
type OCREngineConfig struct {
	// Command is the program to run. "tesseract" gets its standard arguments
	// when Args is empty.
	Command  string   `yaml:"command" validate:"required"`
	Args     []string `yaml:"args"`
	Language string   `yaml:"language"`
}

// StatusConfig selects the ingestion status tracker.
type StatusConfig struct {
	Type string `yaml:"type" validate:"oneof=memory sqlite"`
	Path string `yaml:"path" validate:"required_if=Type sqlite"`
}

// Default returns the configuration used when nothing is configured:
// mock embeddings and in-memory status tracking. The store type is left
// empty so DATABASE_URL can select pgvector; it defaults to memory.
func Default() *Config {
	return &Config{
		Embedding: *ai.DefaultConfig(),
		OCR:       OCRConfig{Workers: 2},
		Status:    StatusConfig{Type: StatusMemory},
	}
}

// Load reads configuration. An empty path skips the YAML file. A missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse expands ${VAR} references in data and decodes it over cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from well-known environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("EMBEDDING_PROVIDER"); ok && v != "" {
		c.Embedding.Provider = v
	}
	if v, ok := lookup("OLLAMA_BASE_URL"); ok && v != "" {
		c.Embedding.Host = v
	}
	if v, ok := lookup("OLLAMA_EMBED_MODEL"); ok && v != "" {
		c.Embedding.Model = v
	}
	if v, ok := lookup("OLLAMA_BATCH_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: OLLAMA_BATCH_SIZE: %w", ErrInvalid, err)
		}
		c.Embedding.BatchSize = n
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		if c.Store.Pgvector == nil {
			c.Store.Pgvector = &pgvector.Config{}
		}
		c.Store.Pgvector.DSN = v
		if c.Store.Type == "" {
			c.Store.Type = StorePgvector
		}
	}
	if v, ok := lookup("QDRANT_URL"); ok && v != "" {
		if c.Store.Qdrant == nil {
			c.Store.Qdrant = &qdrant.Config{}
		}
		c.Store.Qdrant.Host = v
	}
	if v, ok := lookup("QDRANT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: QDRANT_PORT: %w", ErrInvalid, err)
		}
		if c.Store.Qdrant == nil {
			c.Store.Qdrant = &qdrant.Config{}
		}
		c.Store.Qdrant.Port = port
	}
	if v, ok := lookup("OCR_PROVIDER"); ok && v != "" {
		c.OCR.Default = v
	}
	return nil
}

// applyDefaults fills empty fields. Store dimensions follow the embedder.
func (c *Config) applyDefaults() {
	c.Embedding.Normalize()
	if c.Store.Type == "" {
		c.Store.Type = StoreMemory
	}
	if c.Store.Pgvector != nil && c.Store.Pgvector.Dimension == 0 {
		c.Store.Pgvector.Dimension = c.Embedding.Dimension
	}
	if c.Store.Qdrant != nil && c.Store.Qdrant.Dimension == 0 {
		c.Store.Qdrant.Dimension = c.Embedding.Dimension
	}
	if c.Status.Type == "" {
		c.Status.Type = StatusMemory
	}
	if c.OCR.Workers == 0 {
		c.OCR.Workers = 2
	}
	c.OCR.Default = strings.ToLower(c.OCR.Default)
}

// Validate fills defaults, then checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	c.applyDefaults()
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.OCR.Default != "" && len(c.OCR.Engines) > 0 {
		if _, ok := c.engine(c.OCR.Default); !ok {
			return fmt.Errorf("%w: default OCR engine %q is not configured", ErrInvalid, c.OCR.Default)
		}
	}
	if dim := c.storeDimension(); dim != 0 && dim != c.Embedding.Dimension {
		return fmt.Errorf("%w: store dimension %d does not match embedding dimension %d", ErrInvalid, dim, c.Embedding.Dimension)
	}
	return nil
}

func (c *Config) engine(name string) (OCREngineConfig, bool) {
	for n, e := range c.OCR.Engines {
		if strings.EqualFold(n, name) {
			return e, true
		}
	}
	return OCREngineConfig{}, false
}

func (c *Config) storeDimension() int {
	switch c.Store.Type {
	case StorePgvector:
		if c.Store.Pgvector != nil {
			return c.Store.Pgvector.Dimension
		}
	case StoreQdrant:
		if c.Store.Qdrant != nil {
			return c.Store.Qdrant.Dimension
		}
	}
	return 0
}
