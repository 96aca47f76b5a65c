package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadhunter/internal/export"
	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/pipeline"
)

var (
	exportOut     string
	exportBase    string
	exportFormats []string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write the records of a stored run to files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}
		raw, err := st.ListRecords(ctx, run.ID, model.StageRaw)
		if err != nil {
			return eris.Wrap(err, "export: raw records")
		}
		unique, err := st.ListRecords(ctx, run.ID, model.StageUnique)
		if err != nil {
			return eris.Wrap(err, "export: unique records")
		}
		if len(raw) == 0 && len(unique) == 0 {
			return eris.Errorf("run %s has no records", run.ID)
		}

		out := exportOut
		if out == "" {
			out = cfg.Export.Dir
		}
		base := exportBase
		if base == "" {
			base = fmt.Sprintf("%s_%s", pipeline.DefaultBase, truncateID(run.ID))
		}
		formats := exportFormats
		if len(formats) == 0 {
			formats = cfg.Export.Formats
		}

		files, err := export.WriteAll(ctx, export.Bundle{
			Dir:       out,
			Base:      base,
			SheetName: cfg.Export.SheetName,
			Raw:       raw,
			Unique:    unique,
		}, formats)
		if err != nil {
			return eris.Wrap(err, "export: write")
		}

		renderSummary(os.Stdout, &pipeline.Result{
			RunID:   run.ID,
			Summary: export.Summarize(raw, unique),
			Files:   files,
		})
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from config)")
	exportCmd.Flags().StringVar(&exportBase, "base", "", "output file stem (default telecalling_leads_<run>)")
	exportCmd.Flags().StringSliceVar(&exportFormats, "formats", nil, "export formats: xlsx, csv, json, yaml, geojson")
	rootCmd.AddCommand(exportCmd)
}
