package pgvector

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/vectorize/storage"
)

// column lists the accepted format_type renderings of one column.
type column struct {
	name  string
	types []string
}

func expectedColumns(dimension int) []column {
	return []column{
		{"id", []string{"bigint", "integer"}},
		{"vector", []string{fmt.Sprintf("vector(%d)", dimension)}},
		{"ingestion_id", []string{"text", "uuid"}},
		{"chunk_id", []string{"text"}},
		{"chunk_index", []string{"integer", "bigint"}},
		{"chunk_strategy", []string{"text"}},
		{"chunk_text", []string{"text"}},
		{"source_metadata", []string{"jsonb"}},
		{"provider", []string{"text"}},
		{"created_at", []string{"timestamp with time zone"}},
	}
}

func describeColumns(dimension int) string {
	cols := expectedColumns(dimension)
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.name + " " + c.types[0]
	}
	return strings.Join(parts, ", ")
}

// SchemaSQL renders the DDL that creates the table for cfg. It is applied
// only by an explicit migration, never by New.
//
// No approximate (HNSW or IVFFlat) index is created: searches are exact and
// order by distance then id, which such an index cannot serve.
func SchemaSQL(cfg Config) string {
	cfg = cfg.withDefaults()
	table := cfg.QualifiedTable()
	schema := pgx.Identifier{cfg.Schema}.Sanitize()
	ingestionIdx := pgx.Identifier{cfg.Table + "_ingestion_id_idx"}.Sanitize()

	var b strings.Builder
	b.WriteString("CREATE EXTENSION IF NOT EXISTS vector;\n")
	fmt.Fprintf(&b, "CREATE SCHEMA IF NOT EXISTS %s;\n", schema)
	fmt.Fprintf(&b, `CREATE TABLE IF NOT EXISTS %s (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    vector vector(%d) NOT NULL,
    ingestion_id TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    chunk_strategy TEXT NOT NULL,
    chunk_text TEXT NOT NULL,
    source_metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    provider TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`, table, cfg.Dimension)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s (ingestion_id);\n", ingestionIdx, table)
	return b.String()
}

// Migrate applies SchemaSQL to the database named by cfg.DSN.
func Migrate(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return storage.BackendError("connect", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, SchemaSQL(cfg)); err != nil {
		return storage.BackendError("migrate", err)
	}
	return nil
}

// checkColumns compares the columns found in the catalog against the expected layout.
func checkColumns(cfg Config, found map[string]string) error {
	cfg = cfg.withDefaults()
	var problems []string
	for _, c := range expectedColumns(cfg.Dimension) {
		got, ok := found[c.name]
		if !ok {
			problems = append(problems, "missing column "+c.name)
			continue
		}
		if !slices.Contains(c.types, got) {
			problems = append(problems, fmt.Sprintf("column %s has type %s", c.name, got))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &storage.SchemaError{
		Table:    cfg.displayName(),
		Expected: describeColumns(cfg.Dimension),
		Detail:   strings.Join(problems, "; "),
	}
}

// validateSchema reads the table layout from the catalog.
func validateSchema(ctx context.Context, pool *pgxpool.Pool, cfg Config) error {
	cfg = cfg.withDefaults()
	var exists bool
	err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", cfg.QualifiedTable()).Scan(&exists)
	if err != nil {
		return storage.BackendError("inspect schema", err)
	}
	if !exists {
		return &storage.SchemaError{
			Table:    cfg.displayName(),
			Expected: describeColumns(cfg.Dimension),
			Detail:   "table does not exist",
		}
	}

	rows, err := pool.Query(ctx, `
		SELECT a.attname, format_type(a.atttypid, a.atttypmod)
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass($1) AND a.attnum > 0 AND NOT a.attisdropped`,
		cfg.QualifiedTable())
	if err != nil {
		return storage.BackendError("inspect columns", err)
	}
	defer rows.Close()

	found := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return storage.BackendError("inspect columns", err)
		}
		found[name] = typ
	}
	if err := rows.Err(); err != nil {
		return storage.BackendError("inspect columns", err)
	}
	return checkColumns(cfg, found)
}
