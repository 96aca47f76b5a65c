package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadhunter/internal/dedupe"
	"github.com/sells-group/leadhunter/internal/export"
	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/pipeline"
)

var (
	reconcileIn      string
	reconcileOut     string
	reconcileBase    string
	reconcileFormats []string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Deduplicate a previously extracted batch",
	Long:  "Reads a JSON record dump or an exported lead sheet, reconciles duplicates by phone and name, and writes the cleaned batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}
		if reconcileIn == "" {
			return eris.New("--in is required")
		}

		records, err := readBatch(reconcileIn, cfg.Export.SheetName)
		if err != nil {
			return err
		}

		unique, stats := dedupe.ReconcileWithStats(records)
		zap.L().Info("reconciled batch",
			zap.String("input", reconcileIn),
			zap.Int("original", stats.Original),
			zap.Int("unique", stats.Unique),
			zap.Int("phone_joins", stats.PhoneJoins),
			zap.Int("name_joins", stats.NameJoins),
		)

		out := reconcileOut
		if out == "" {
			out = cfg.Export.Dir
		}
		formats := reconcileFormats
		if len(formats) == 0 {
			formats = cfg.Export.Formats
		}
		files, err := export.WriteAll(cmd.Context(), export.Bundle{
			Dir:       out,
			Base:      reconcileBase,
			SheetName: cfg.Export.SheetName,
			Raw:       records,
			Unique:    unique,
		}, formats)
		if err != nil {
			return eris.Wrap(err, "reconcile: export")
		}

		renderSummary(os.Stdout, &pipeline.Result{
			Summary: export.Summarize(records, unique),
			Files:   files,
		})
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileIn, "in", "", "input batch (.json record dump or .xlsx lead sheet)")
	reconcileCmd.Flags().StringVar(&reconcileOut, "out", "", "output directory (default from config)")
	reconcileCmd.Flags().StringVar(&reconcileBase, "base", pipeline.DefaultBase+"_reconciled", "output file stem")
	reconcileCmd.Flags().StringSliceVar(&reconcileFormats, "formats", nil, "export formats: xlsx, csv, json, yaml, geojson")
	rootCmd.AddCommand(reconcileCmd)
}

// readBatch loads records from a JSON dump or an XLSX lead sheet, chosen by
// extension.
func readBatch(path, sheetName string) ([]model.BusinessRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return export.ReadJSON(path)
	case ".xlsx":
		return export.ReadXLSX(path, sheetName)
	default:
		return nil, eris.Errorf("unsupported input %s: want .json or .xlsx", path)
	}
}
