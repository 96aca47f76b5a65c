package assemble

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/model"
)

// ErrNoEntities is returned when the navigator finds nothing to visit.
var ErrNoEntities = eris.New("assemble: no entities discovered")

// Navigator exposes the entities of one listing, one at a time. Visit blocks
// until entity i's detail view has settled and returns its scope.
type Navigator interface {
	Count(ctx context.Context) (int, error)
	Visit(ctx context.Context, i int) (extract.Scope, error)
}

// Assistant proposes field values from an entity's scoped text.
type Assistant interface {
	Suggest(ctx context.Context, text string) (extract.Suggestions, error)
}

// Observer receives progress callbacks. All methods are called from the
// goroutine running RunExtraction.
type Observer interface {
	Started(total int)
	Extracted(rec model.BusinessRecord)
	Skipped(index int, err error)
}

type nopObserver struct{}

func (nopObserver) Started(int)                    {}
func (nopObserver) Extracted(model.BusinessRecord) {}
func (nopObserver) Skipped(int, error)             {}

// RunOptions configures RunExtraction.
type RunOptions struct {
	Extract     extract.Options
	Assistant   Assistant
	Observer    Observer
	MaxEntities int
}

// RunResult is the pre-dedup batch plus counts.
type RunResult struct {
	Records    []model.BusinessRecord
	Discovered int
	Skipped    int
	Duration   time.Duration
}

// RunExtraction visits every entity in order and assembles one record per
// entity that could be visited. An entity the navigator fails on is skipped
// and not retried. Records are numbered by listing position, starting at 1.
func RunExtraction(ctx context.Context, nav Navigator, opts RunOptions) (*RunResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "assemble"))

	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	total, err := nav.Count(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "assemble: count entities")
	}
	if total == 0 {
		return nil, ErrNoEntities
	}
	if opts.MaxEntities > 0 && total > opts.MaxEntities {
		log.Info("capping entities", zap.Int("discovered", total), zap.Int("max", opts.MaxEntities))
		total = opts.MaxEntities
	}
	obs.Started(total)

	asm := NewAssembler(extract.NewEngine(opts.Extract))
	result := &RunResult{Discovered: total}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, eris.Wrap(err, "assemble: run interrupted")
		}

		scope, err := nav.Visit(ctx, i)
		if err != nil {
			log.Warn("skipping entity", zap.Int("index", i), zap.Error(err))
			result.Skipped++
			obs.Skipped(i, err)
			continue
		}

		sugg := suggest(ctx, opts.Assistant, scope, log)
		rec := asm.Assemble(i+1, scope, sugg)
		result.Records = append(result.Records, rec)
		obs.Extracted(rec)

		log.Debug("extracted entity",
			zap.Int("number", rec.Number),
			zap.String("name", rec.Name),
			zap.String("method", string(rec.Method)),
		)
	}

	result.Duration = time.Since(start)
	log.Info("extraction complete",
		zap.Int("discovered", result.Discovered),
		zap.Int("extracted", len(result.Records)),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// suggest consults the assistant once for an entity. A failing assistant
// only costs the suggestions; the deterministic chain still runs.
func suggest(ctx context.Context, a Assistant, scope extract.Scope, log *zap.Logger) extract.Suggestions {
	if a == nil {
		return nil
	}
	sugg, err := a.Suggest(ctx, scope.Text)
	if err != nil {
		log.Warn("assistant failed, using deterministic chain", zap.Error(err))
		return nil
	}
	return sugg
}
