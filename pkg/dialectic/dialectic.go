// Package dialectic wires the analysis engine together: LLM transport,
// analyzer, orchestrator, checkpoint store, metrics and traces.
package dialectic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dan-solli/dialectic/pkg/analysis"
	"github.com/dan-solli/dialectic/pkg/ingest"
	"github.com/dan-solli/dialectic/pkg/llm"
	"github.com/dan-solli/dialectic/pkg/metrics"
	"github.com/dan-solli/dialectic/pkg/orchestrator"
	"github.com/dan-solli/dialectic/pkg/store"
	"github.com/dan-solli/dialectic/pkg/trace"
)

// Dialectic is the main entry point of the engine.
type Dialectic struct {
	config       Config
	logger       *slog.Logger
	llm          llm.LLMClient
	analyzer     *analysis.Analyzer
	orchestrator *orchestrator.Orchestrator
	store        *store.SQLiteStore
	metrics      *metrics.MetricsCollector
	tracer       trace.Exporter
}

// New creates a Dialectic instance with the LLM transport selected by
// cfg.Provider.
func New(cfg Config) (*Dialectic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.withDefaults()

	var client llm.LLMClient
	switch cfg.Provider {
	case ProviderOllama:
		client = llm.NewOllamaClient(cfg.BaseURL, cfg.Model)
	default:
		c := llm.NewOpenAILLM(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
		client = c
	}

	return NewWithClient(cfg, client)
}

// NewWithClient creates a Dialectic instance on top of an existing LLM
// client, e.g. a scripted one in tests.
func NewWithClient(cfg Config, client llm.LLMClient) (*Dialectic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.withDefaults()

	d := &Dialectic{
		config: cfg,
		logger: cfg.Logger,
		llm:    client,
	}

	var collector metrics.Collector = metrics.NewNoopCollector()
	if cfg.MetricsEnabled {
		d.metrics = metrics.NewCollector()
		collector = d.metrics
	}

	var opts []trace.FileExporterOption
	if cfg.TraceMaxSize > 0 {
		opts = append(opts, trace.WithMaxSize(cfg.TraceMaxSize))
	}
	tracer, err := trace.NewFileExporter(cfg.TracePath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	d.tracer = tracer

	if cfg.DBPath != "" {
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
				tracer.Close()
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		st, err := store.OpenSQLiteStore(cfg.DBDriver, cfg.DBPath)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		d.store = st
	}

	analyzerOpts := []analysis.Option{
		analysis.WithLogger(cfg.Logger),
		analysis.WithMetrics(collector),
	}
	if cfg.MaxRetries != 0 {
		analyzerOpts = append(analyzerOpts, analysis.WithMaxRetries(max(cfg.MaxRetries, 0)))
	}
	if cfg.RetryBaseDelay > 0 {
		analyzerOpts = append(analyzerOpts, analysis.WithBaseDelay(cfg.RetryBaseDelay))
	}
	d.analyzer = analysis.New(client, analyzerOpts...)

	orchOpts := []orchestrator.Option{
		orchestrator.WithChunkSize(cfg.ChunkSize),
		orchestrator.WithConsolidationInterval(cfg.ConsolidationInterval),
		orchestrator.WithLogger(cfg.Logger),
		orchestrator.WithMetrics(collector),
		orchestrator.WithTraceExporter(tracer),
	}
	if d.store != nil {
		orchOpts = append(orchOpts,
			orchestrator.WithCheckpointer(d.store),
			orchestrator.WithDocumentTracker(d.store))
	}
	d.orchestrator = orchestrator.New(d.analyzer, orchOpts...)

	return d, nil
}

// Orchestrator returns the session orchestrator.
func (d *Dialectic) Orchestrator() *orchestrator.Orchestrator {
	return d.orchestrator
}

// Store returns the checkpoint store, or nil when checkpoints are disabled.
func (d *Dialectic) Store() *store.SQLiteStore {
	return d.store
}

// Metrics returns the Prometheus collector, or nil when metrics are disabled.
func (d *Dialectic) Metrics() *metrics.MetricsCollector {
	return d.metrics
}

// GetLLM returns the configured LLM client
func (d *Dialectic) GetLLM() llm.LLMClient {
	return d.llm
}

// LoadFile reads a document, and optionally an image, into a fresh session.
// It returns the ID of an earlier session that already completed the same
// text, or "" if there is none or checkpoints are disabled.
func (d *Dialectic) LoadFile(ctx context.Context, docPath, imagePath string) (string, error) {
	doc, err := ingest.Load(docPath, imagePath)
	if err != nil {
		return "", err
	}

	var previous string
	if d.store != nil {
		previous, err = d.store.ProcessedSession(ctx, doc.Hash())
		if err != nil {
			d.logger.Warn("failed to look up processed document", "file", doc.FileName, "error", err)
			previous = ""
		}
	}

	d.orchestrator.LoadDocument(doc)
	return previous, nil
}

// Resume replaces the current session with the checkpoint stored under id.
func (d *Dialectic) Resume(ctx context.Context, id string) error {
	if d.store == nil {
		return errors.New("checkpoints are disabled: no db_path configured")
	}
	saved, err := d.store.LoadSession(ctx, id)
	if err != nil {
		return err
	}
	if saved == nil {
		return fmt.Errorf("%w: %s", store.ErrSessionNotFound, id)
	}
	return d.orchestrator.Import(bytes.NewReader(saved.Data))
}

// ExportFile writes the current session to path.
func (d *Dialectic) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := d.orchestrator.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("export session: %w", err)
	}
	return f.Close()
}

// ImportFile replaces the current session with the one stored at path.
func (d *Dialectic) ImportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return d.orchestrator.Import(f)
}

// NewAutoRunner creates an auto-runner using the configured interval.
func (d *Dialectic) NewAutoRunner() *orchestrator.AutoRunner {
	return orchestrator.NewAutoRunner(d.orchestrator, d.config.AutoRunInterval)
}

// Run advances the session until the chunk loop completes, a step fails, or
// ctx is canceled. With auto set, steps are paced by the auto-run interval;
// otherwise they run back to back.
func (d *Dialectic) Run(ctx context.Context, auto bool) error {
	if auto {
		r := d.NewAutoRunner()
		r.Start(ctx)
		<-r.Done()
		return r.Err()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		kind, err := d.orchestrator.Step(ctx)
		if err != nil {
			return err
		}
		if kind == orchestrator.StepComplete {
			return nil
		}
	}
}

// Close releases the trace file and the checkpoint database.
func (d *Dialectic) Close() error {
	var errs []error
	if d.tracer != nil {
		if err := d.tracer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace exporter: %w", err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}
	return errors.Join(errs...)
}
