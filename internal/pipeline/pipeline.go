// Package pipeline runs one lead hunt end to end: extraction, reconciliation,
// persistence and export.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadhunter/internal/assemble"
	"github.com/sells-group/leadhunter/internal/dedupe"
	"github.com/sells-group/leadhunter/internal/export"
	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/store"
)

// DefaultBase is the export file stem.
const DefaultBase = "telecalling_leads"

// ExportOptions controls the files a run writes. An empty Dir skips export.
type ExportOptions struct {
	Dir       string
	Base      string
	SheetName string
	Formats   []string
}

// Options configures a Pipeline.
type Options struct {
	Extract     extract.Options
	MaxEntities int
	Export      ExportOptions
}

// Result is everything one hunt produced.
type Result struct {
	RunID    string
	Raw      []model.BusinessRecord
	Unique   []model.BusinessRecord
	Dedupe   dedupe.Stats
	Summary  export.Summary
	Stats    model.RunStats
	Files    []string
	Duration time.Duration
}

// Pipeline wires the extraction engine to its collaborators. The store and
// the assistant are optional.
type Pipeline struct {
	store     store.Store
	assistant assemble.Assistant
	observer  assemble.Observer
	opts      Options
}

// New creates a Pipeline. Pass a nil store to skip persistence and a nil
// assistant to run the deterministic chains only.
func New(st store.Store, assistant assemble.Assistant, observer assemble.Observer, opts Options) *Pipeline {
	if opts.Export.Base == "" {
		opts.Export.Base = DefaultBase
	}
	if opts.Export.SheetName == "" {
		opts.Export.SheetName = export.DefaultSheetName
	}
	return &Pipeline{
		store:     st,
		assistant: assistant,
		observer:  observer,
		opts:      opts,
	}
}

// Run executes a hunt over one navigator. source names the navigator's input
// for the run history.
func (p *Pipeline) Run(ctx context.Context, source string, nav assemble.Navigator) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("source", source))
	log.Info("pipeline: starting hunt")

	result := &Result{}

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, source)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		result.RunID = runID
		log = log.With(zap.String("run_id", runID))
	}

	setStatus := func(status model.RunStatus) {
		if p.store == nil {
			return
		}
		if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
			log.Warn("pipeline: failed to update status", zap.Error(err))
		}
	}
	fail := func(err error) (*Result, error) {
		if p.store != nil {
			// The run context may be the reason for failing; record it regardless.
			if ferr := p.store.FailRun(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
				log.Warn("pipeline: failed to record failure", zap.Error(ferr))
			}
		}
		return result, err
	}
	phase := func(name string, fn func() error) error {
		began := time.Now()
		err := fn()
		fields := []zap.Field{zap.String("phase", name), zap.Int64("duration_ms", time.Since(began).Milliseconds())}
		if err != nil {
			log.Error("pipeline: phase failed", append(fields, zap.Error(err))...)
			return err
		}
		log.Info("pipeline: phase complete", fields...)
		return nil
	}

	// ===== Extract =====
	setStatus(model.RunStatusExtracting)
	var extracted *assemble.RunResult
	err := phase("extract", func() error {
		var err error
		extracted, err = assemble.RunExtraction(ctx, nav, assemble.RunOptions{
			Extract:     p.opts.Extract,
			Assistant:   p.assistant,
			Observer:    p.observer,
			MaxEntities: p.opts.MaxEntities,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}
	result.Raw = extracted.Records

	// ===== Reconcile =====
	began := time.Now()
	result.Unique, result.Dedupe = dedupe.ReconcileWithStats(result.Raw)
	log.Info("pipeline: phase complete",
		zap.String("phase", "reconcile"),
		zap.Int64("duration_ms", time.Since(began).Milliseconds()),
	)
	result.Summary = export.Summarize(result.Raw, result.Unique)

	// ===== Persist =====
	if p.store != nil {
		err := phase("persist", func() error {
			if err := p.store.SaveRecords(ctx, runID, model.StageRaw, result.Raw); err != nil {
				return err
			}
			return p.store.SaveRecords(ctx, runID, model.StageUnique, result.Unique)
		})
		if err != nil {
			return fail(eris.Wrap(err, "pipeline: persist records"))
		}
	}

	// ===== Export =====
	if p.opts.Export.Dir != "" {
		err := phase("export", func() error {
			files, err := export.WriteAll(ctx, export.Bundle{
				Dir:       p.opts.Export.Dir,
				Base:      p.opts.Export.Base,
				SheetName: p.opts.Export.SheetName,
				Raw:       result.Raw,
				Unique:    result.Unique,
			}, p.opts.Export.Formats)
			result.Files = files
			return err
		})
		if err != nil {
			return fail(eris.Wrap(err, "pipeline: export"))
		}
	}

	result.Duration = time.Since(start)
	result.Stats = model.RunStats{
		Discovered:  extracted.Discovered,
		Extracted:   len(result.Raw),
		Skipped:     extracted.Skipped,
		Unique:      len(result.Unique),
		Duplicates:  result.Dedupe.Removed,
		AIExtracted: result.Summary.AIExtracted,
		DurationMs:  result.Duration.Milliseconds(),
	}
	if p.store != nil {
		if err := p.store.CompleteRun(ctx, runID, &result.Stats); err != nil {
			return result, eris.Wrap(err, "pipeline: complete run")
		}
	}

	log.Info("pipeline: hunt complete",
		zap.Int("extracted", result.Stats.Extracted),
		zap.Int("unique", result.Stats.Unique),
		zap.Int("duplicates", result.Stats.Duplicates),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
