package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/course-ingest/internal/config"
	"github.com/jonathan/course-ingest/internal/db"
	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/llm"
	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/observability"
	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/spf13/cobra"
)

// app is the wiring shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    store.Store
	pipeline *pipeline.Pipeline
	printer  *observability.Printer // nil unless --verbose
	closers  []func()
}

type appOptions struct {
	dbURL     string // overrides the configured database URL
	requireDB bool   // fail instead of falling back to the in-memory store
	offline   bool   // use the markdown heuristics instead of the LLM
	noLLM     bool   // the command never extracts
	verbose   io.Writer
}

// newApp loads configuration and builds the store, extractor and pipeline.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	if opts.verbose != nil {
		a.printer = observability.NewPrinter(opts.verbose)
	}
	a.closers = append(a.closers, log.Sync)

	if err := a.openStore(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}

	var service extraction.Service = extraction.NewMarkdownService()
	switch {
	case opts.noLLM:
	case opts.offline || cfg.Offline:
		log.Info("using offline markdown extraction")
	default:
		if cfg.APIKey == "" {
			a.Close()
			return nil, fmt.Errorf("%s is required for LLM extraction (or pass --offline)", config.EnvAPIKey)
		}
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		service = extraction.NewLLMService(client, cfg.Tier())
	}

	popts := pipeline.Options{ExtractionTimeout: cfg.ExtractionDeadline()}
	if a.printer != nil {
		popts.OnProgress = a.printer.PrintProgress
	}
	a.pipeline = pipeline.New(a.store, extraction.NewAdapter(service, log), log, popts)
	return a, nil
}

func (a *app) openStore(ctx context.Context, opts appOptions) error {
	url := opts.dbURL
	if url == "" {
		url = a.cfg.DatabaseURL
	}
	if url == "" {
		if opts.requireDB {
			return fmt.Errorf("a database is required: pass --db-url or set %s", config.EnvDatabaseURL)
		}
		a.log.Warn("no database configured, records are kept in memory for this run only")
		a.store = store.NewMemory()
		return nil
	}

	database, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, database.Close)
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	a.store = database
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// verboseOut is where --verbose output goes, or nil.
func verboseOut(cmd *cobra.Command) io.Writer {
	if !verbose {
		return nil
	}
	return cmd.ErrOrStderr()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
