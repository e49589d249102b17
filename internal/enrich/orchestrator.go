package enrich

import (
	"context"
	"time"

	"github.com/agenthands/geoenrich/internal/config"
	"github.com/agenthands/geoenrich/internal/llm"
	"github.com/agenthands/geoenrich/internal/record"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionReport is the outcome of processing one collection.
type CollectionReport struct {
	Name     string
	Stats    Stats
	Err      error
	Duration time.Duration
}

type Report struct {
	RunID       string
	Collections []CollectionReport
	IndexErr    error
}

// Failed reports whether any collection or the index write failed.
func (r Report) Failed() bool {
	if r.IndexErr != nil {
		return true
	}
	for _, c := range r.Collections {
		if c.Err != nil {
			return true
		}
	}
	return false
}

// Orchestrator runs the configured collections one after another.
type Orchestrator struct {
	cfg      *config.Config
	client   llm.LLMClient
	pipeline *Pipeline
	index    *Index
	logger   *zap.Logger
}

func NewOrchestrator(cfg *config.Config, client llm.LLMClient, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		client:   client,
		pipeline: NewPipeline(NewLocator(client, cfg.Prompt, logger), logger),
		index:    NewIndex(),
		logger:   logger,
	}
}

// withLogger returns a copy logging through logger. The index is shared.
func (o *Orchestrator) withLogger(logger *zap.Logger) *Orchestrator {
	c := *o
	c.logger = logger
	c.pipeline = NewPipeline(NewLocator(o.client, o.cfg.Prompt, logger), logger)
	return &c
}

func (o *Orchestrator) Index() *Index {
	return o.index
}

// Run processes every collection. A failure in one collection is logged
// and never stops the others; only cancellation ends the run early.
func (o *Orchestrator) Run(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString()}
	run := o.withLogger(o.logger.With(zap.String("run_id", report.RunID)))
	logger := run.logger

	for _, col := range o.cfg.Collections {
		if ctx.Err() != nil {
			logger.Warn("run cancelled, skipping remaining collections", zap.String("next", col.Name))
			break
		}

		logger.Info("processing collection", zap.String("collection", col.Name), zap.String("input", col.Input))
		start := time.Now()
		stats, err := run.ProcessFile(ctx, col)
		cr := CollectionReport{Name: col.Name, Stats: stats, Err: err, Duration: time.Since(start)}
		report.Collections = append(report.Collections, cr)

		if err != nil {
			logger.Error("collection failed", zap.String("collection", col.Name), zap.Error(err))
			continue
		}
		logger.Info("finished processing collection",
			append([]zap.Field{
				zap.String("collection", col.Name),
				zap.String("output", col.OutputPath()),
				zap.Duration("elapsed", cr.Duration),
			}, stats.fields()...)...,
		)
	}

	if o.cfg.Index.Path != "" {
		if err := o.index.Save(o.cfg.Index.Path); err != nil {
			report.IndexErr = err
			logger.Error("failed to write location index", zap.Error(err))
		} else {
			logger.Info("location index written", zap.String("path", o.cfg.Index.Path), zap.Int("locations", o.index.Len()))
		}
	}

	logger.Info("all collections processed")
	return report
}

// ProcessFile loads one collection, enriches it and writes it back out.
// A load failure leaves the output untouched. A cancelled run still writes
// the records enriched so far.
func (o *Orchestrator) ProcessFile(ctx context.Context, col config.CollectionConfig) (Stats, error) {
	records, err := record.Load(col.Input)
	if err != nil {
		return Stats{}, err
	}

	stats, enrichErr := o.pipeline.Enrich(ctx, records, col.TitleField)

	if err := record.Save(col.OutputPath(), records); err != nil {
		return stats, err
	}
	o.index.Add(records, col.TitleField)

	return stats, enrichErr
}
