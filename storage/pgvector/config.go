package pgvector

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	DefaultSchema = "ingestion_service"
	DefaultTable  = "vectors"
)

// Config describes the table a Store reads and writes.
type Config struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string `yaml:"dsn" validate:"required"`

	// Schema holds the table. Default: "ingestion_service"
	Schema string `yaml:"schema"`

	// Table name. Default: "vectors"
	Table string `yaml:"table"`

	// Dimension is the length of the vector column.
	Dimension int `yaml:"dimension" validate:"gt=0"`
}

func (c Config) withDefaults() Config {
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	return c
}

func (c Config) validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: dsn is required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d must be positive", ErrInvalidConfig, c.Dimension)
	}
	return nil
}

// QualifiedTable returns the quoted schema.table identifier.
func (c Config) QualifiedTable() string {
	c = c.withDefaults()
	return pgx.Identifier{c.Schema, c.Table}.Sanitize()
}

func (c Config) displayName() string {
	c = c.withDefaults()
	return c.Schema + "." + c.Table
}
