package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadhunter/internal/assemble"
	"github.com/sells-group/leadhunter/internal/assist"
	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/navigate"
	"github.com/sells-group/leadhunter/internal/pipeline"
	"github.com/sells-group/leadhunter/internal/store"
	"github.com/sells-group/leadhunter/pkg/anthropic"
	"github.com/sells-group/leadhunter/pkg/google"
)

const lockFile = ".leadhunter.lock"

var (
	extractSnapshots string
	extractFixture   string
	extractPlaces    string
	extractOut       string
	extractFormats   []string
	extractMax       int
	extractAssist    bool
	extractNoStore   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract, reconcile and export business records",
	Long: `Visits every entity from one source, extracts a business record from each,
reconciles duplicates and writes the lead sheet. Exactly one source is required:
--snapshots (directory of saved detail panels), --fixture (JSON entity list)
or --places (a Places text search query).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if extractAssist {
			cfg.Assist.Enabled = true
		}
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		if extractPlaces != "" {
			if err := cfg.Validate("places"); err != nil {
				return err
			}
		}

		nav, source, err := buildNavigator(extractSnapshots, extractFixture, extractPlaces)
		if err != nil {
			return err
		}

		out := extractOut
		if out == "" {
			out = cfg.Export.Dir
		}
		unlock, err := lockOutput(out)
		if err != nil {
			return err
		}
		defer unlock()

		var st store.Store
		if !extractNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		var assistant assemble.Assistant
		if cfg.Assist.Enabled {
			assistant = buildAssistant()
		}

		formats := extractFormats
		if len(formats) == 0 {
			formats = cfg.Export.Formats
		}
		maxEntities := cfg.Extract.MaxEntities
		if extractMax > 0 {
			maxEntities = extractMax
		}

		p := pipeline.New(st, assistant, &progressObserver{log: zap.L()}, pipeline.Options{
			Extract: extract.Options{
				TopWindow:    cfg.Extract.TopWindow,
				AnchorBefore: cfg.Extract.AnchorBefore,
				AnchorAfter:  cfg.Extract.AnchorAfter,
			},
			MaxEntities: maxEntities,
			Export: pipeline.ExportOptions{
				Dir:       out,
				SheetName: cfg.Export.SheetName,
				Formats:   formats,
			},
		})

		result, err := p.Run(ctx, source, nav)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		renderSummary(os.Stdout, result)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractSnapshots, "snapshots", "", "directory of saved listing detail panels (.html)")
	extractCmd.Flags().StringVar(&extractFixture, "fixture", "", "JSON file of pre-captured entities")
	extractCmd.Flags().StringVar(&extractPlaces, "places", "", "Places text search query")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output directory (default from config)")
	extractCmd.Flags().StringSliceVar(&extractFormats, "formats", nil, "export formats: xlsx, csv, json, yaml, geojson")
	extractCmd.Flags().IntVar(&extractMax, "max", 0, "maximum entities to visit (default from config)")
	extractCmd.Flags().BoolVar(&extractAssist, "assist", false, "consult the model assistant for each entity")
	extractCmd.Flags().BoolVar(&extractNoStore, "no-store", false, "skip persisting the run")
	rootCmd.AddCommand(extractCmd)
}

// buildNavigator picks the navigator for the one source given and returns a
// label for the run history.
func buildNavigator(snapshots, fixture, places string) (assemble.Navigator, string, error) {
	set := 0
	for _, s := range []string{snapshots, fixture, places} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, "", eris.New("exactly one of --snapshots, --fixture or --places is required")
	}

	switch {
	case snapshots != "":
		nav, err := navigate.NewSnapshotDir(snapshots)
		if err != nil {
			return nil, "", err
		}
		return nav, "snapshots:" + snapshots, nil
	case fixture != "":
		nav, err := navigate.LoadFixture(fixture)
		if err != nil {
			return nil, "", err
		}
		return nav, "fixture:" + fixture, nil
	default:
		pc := navigate.DefaultPlacesConfig(places)
		pc.Language = cfg.Google.Language
		if cfg.Google.MaxPages > 0 {
			pc.MaxPages = cfg.Google.MaxPages
		}
		pc.RatePerSec = cfg.Google.RatePerSec
		var opts []google.Option
		if cfg.Google.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.Google.BaseURL))
		}
		return navigate.NewPlaces(google.NewClient(cfg.Google.Key, opts...), pc), "places:" + places, nil
	}
}

func buildAssistant() *assist.Anthropic {
	ac := assist.DefaultConfig()
	if cfg.Assist.Model != "" {
		ac.Model = cfg.Assist.Model
	}
	if cfg.Assist.MaxTokens > 0 {
		ac.MaxTokens = cfg.Assist.MaxTokens
	}
	if cfg.Assist.MaxInputChars > 0 {
		ac.MaxInputChars = cfg.Assist.MaxInputChars
	}
	ac.RatePerSec = cfg.Assist.RatePerSec
	if cfg.Assist.BreakerThreshold > 0 {
		ac.BreakerThreshold = cfg.Assist.BreakerThreshold
	}
	return assist.NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), ac)
}

// lockOutput takes an exclusive lock on the export directory so two runs
// never interleave their files.
func lockOutput(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create output dir %s", dir)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, eris.Wrap(err, "lock output dir")
	}
	if !locked {
		return nil, eris.Errorf("another extract run is writing to %s", dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// progressObserver logs per-entity progress.
type progressObserver struct {
	log   *zap.Logger
	total int
}

func (o *progressObserver) Started(total int) {
	o.total = total
	o.log.Info("visiting entities", zap.Int("total", total))
}

func (o *progressObserver) Extracted(rec model.BusinessRecord) {
	o.log.Info("extracted entity",
		zap.Int("number", rec.Number),
		zap.Int("total", o.total),
		zap.String("name", rec.Name),
		zap.String("phone", rec.Phone),
		zap.String("method", string(rec.Method)),
	)
}

func (o *progressObserver) Skipped(index int, err error) {
	o.log.Warn("skipped entity",
		zap.Int("index", index+1),
		zap.Int("total", o.total),
		zap.Error(err),
	)
}

var _ assemble.Observer = (*progressObserver)(nil)
