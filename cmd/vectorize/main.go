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


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/poiesic/vectorize"
	"github.com/poiesic/vectorize/config"
	"github.com/poiesic/vectorize/retry"
	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/storage/pgvector"
	"github.com/poiesic/vectorize/storage/qdrant"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vectorize",
		Usage: "Chunk, embed and search documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"VECTORIZE_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files or inline text",
				ArgsUsage: "[file...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "text",
						Usage: "Ingest this text instead of files",
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Content type of every file; guessed from the extension when empty",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Ingestion ID; only valid with a single input",
					},
					&cli.StringFlag{
						Name:  "ocr-engine",
						Usage: "OCR engine for embedded images",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for failed ingestions",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "reingest",
				Usage:     "Replace an ingestion with a fresh run over a file",
				ArgsUsage: "<ingestion-id> <file>",
				Action:    reingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Content type of the file; guessed from the extension when empty",
					},
					&cli.StringFlag{
						Name:  "ocr-engine",
						Usage: "OCR engine for embedded images",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search ingested chunks",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete the vectors of an ingestion",
				ArgsUsage: "<ingestion-id>",
				Action:    deleteCommand,
			},
			{
				Name:   "reset",
				Usage:  "Delete every vector in the store",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the reset",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show ingestion status; lists every ingestion without an ID",
				ArgsUsage: "[ingestion-id]",
				Action:    statusCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Print or apply the schema of the configured store",
				Action: migrateCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "apply",
						Usage: "Apply the schema instead of printing it",
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openService(c *cli.Context) (*vectorize.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := vectorize.New(c.Context, cfg, vectorize.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context
	text := c.String("text")
	files := c.Args().Slice()

	if text == "" && len(files) == 0 {
		return fmt.Errorf("nothing to ingest: pass files or --text")
	}
	if text != "" && len(files) > 0 {
		return fmt.Errorf("--text cannot be combined with files")
	}
	if c.String("id") != "" && len(files) > 1 {
		return fmt.Errorf("--id requires a single input, got %d files", len(files))
	}
	maxRetries := c.Int("max-retries")
	if maxRetries < 1 {
		return fmt.Errorf("max-retries must be at least 1, got %d", maxRetries)
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	backoff := []retry.Option{
		retry.WithMaxAttempts(maxRetries),
		retry.WithBaseDelay(c.Duration("retry-delay")),
		retry.WithRetryable(vectorize.Retryable),
		retry.WithLogger(slog.Default()),
	}
	opts := vectorize.IngestOptions{IngestionID: c.String("id"), OCREngine: c.String("ocr-engine")}
	out := c.App.Writer

	if text != "" {
		if opts.IngestionID == "" {
			opts.IngestionID = uuid.NewString()
		}
		opts.SourceName = "inline"
		var result *vectorize.IngestResult
		err := retry.WithBackoff(ctx, func(ctx context.Context) error {
			var err error
			result, err = svc.IngestText(ctx, text, opts)
			return err
		}, backoff...)
		if err != nil {
			return fmt.Errorf("ingest text: %w", err)
		}
		fmt.Fprintf(out, "%s %s (%d chunks)\n", color.GreenString("ingested"), result.IngestionID, len(result.Chunks))
		return nil
	}

	bar := newProgressBar(c.App.ErrWriter, len(files), "Ingesting")
	var failed []error
	for _, path := range files {
		result, err := ingestFile(ctx, svc, path, c.String("content-type"), opts, backoff)
		bar.Add(1)
		if err != nil {
			slog.Error("ingestion failed", "file", path, "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(out, "%s %s %s (%d chunks", color.GreenString("ingested"), path, result.IngestionID, len(result.Chunks))
		if len(result.OCR) > 0 {
			fmt.Fprintf(out, ", %d images", len(result.OCR))
		}
		fmt.Fprintln(out, ")")
	}
	bar.Finish()

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(files), errors.Join(failed...))
	}
	return nil
}

// ingestFile fixes the ingestion ID before the first attempt so retries
// resume the same status record.
func ingestFile(ctx context.Context, svc *vectorize.Service, path, contentType string, opts vectorize.IngestOptions, backoff []retry.Option) (*vectorize.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.IngestionID == "" {
		opts.IngestionID = uuid.NewString()
	}

	var result *vectorize.IngestResult
	err = retry.WithBackoff(ctx, func(ctx context.Context) error {
		var err error
		result, err = svc.IngestDocument(ctx, data, filepath.Base(path), contentType, opts)
		return err
	}, backoff...)
	return result, err
}

func reingestCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("reingest requires <ingestion-id> <file>")
	}
	id, path := c.Args().Get(0), c.Args().Get(1)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Reingest(c.Context, id, data, filepath.Base(path), c.String("content-type"),
		vectorize.IngestOptions{OCREngine: c.String("ocr-engine")})
	if err != nil {
		return fmt.Errorf("reingest %s: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "%s %s (%d chunks)\n", color.GreenString("reingested"), result.IngestionID, len(result.Chunks))
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search requires a query")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	hits, err := svc.Search(c.Context, query, c.Int("limit"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(hits) == 0 {
		fmt.Fprintln(out, color.YellowString("no results"))
		return nil
	}
	for i, hit := range hits {
		m := hit.Record.Metadata
		fmt.Fprintf(out, "%d. %s %s %s", i+1,
			color.CyanString("%.4f", hit.Score),
			color.MagentaString(m.IngestionID),
			m.ChunkID)
		if hit.Verbatim {
			fmt.Fprint(out, " ", color.GreenString("[verbatim]"))
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "   %s\n", snippet(m.ChunkText, 160))
	}
	return nil
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("delete requires <ingestion-id>")
	}
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	id := c.Args().First()
	if err := svc.Delete(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s %s\n", color.GreenString("deleted"), id)
	return nil
}

func resetCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("reset deletes every vector; rerun with --yes to confirm")
	}
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Reset(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, color.GreenString("store reset"))
	return nil
}

func statusCommand(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("status takes at most one ingestion id")
	}
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var records []*status.Record
	if id := c.Args().First(); id != "" {
		rec, err := svc.Status(c.Context, id)
		if err != nil {
			return err
		}
		records = append(records, rec)
	} else {
		records, err = svc.ListStatus(c.Context)
		if err != nil {
			return err
		}
	}

	for _, rec := range records {
		printRecord(c.App.Writer, rec)
	}
	return nil
}

func printRecord(w io.Writer, rec *status.Record) {
	state := string(rec.State)
	switch rec.State {
	case status.StateCompleted:
		state = color.GreenString(state)
	case status.StateFailed:
		state = color.RedString(state)
	case status.StateRunning:
		state = color.YellowString(state)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.IngestionID, state, rec.SourceType, rec.SourceName,
		rec.UpdatedAt.Format(time.RFC3339))
	if rec.Error != "" {
		fmt.Fprintf(w, "\t%s\n", rec.Error)
	}
}

func migrateCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out := c.App.Writer

	switch cfg.Store.Type {
	case config.StorePgvector:
		if !c.Bool("apply") {
			fmt.Fprintln(out, pgvector.SchemaSQL(*cfg.Store.Pgvector))
			return nil
		}
		if err := pgvector.Migrate(c.Context, *cfg.Store.Pgvector); err != nil {
			return err
		}
	case config.StoreQdrant:
		if !c.Bool("apply") {
			collection := cfg.Store.Qdrant.Collection
			if collection == "" {
				collection = qdrant.DefaultCollection
			}
			fmt.Fprintf(out, "collection %q: %d dimensions, cosine distance\n", collection, cfg.Store.Qdrant.Dimension)
			return nil
		}
		if err := qdrant.Migrate(c.Context, *cfg.Store.Qdrant); err != nil {
			return err
		}
	default:
		fmt.Fprintf(out, "store %q needs no migration\n", cfg.Store.Type)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", color.GreenString("migrated"), cfg.Store.Type)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
