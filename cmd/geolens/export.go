package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/stats"
)

var exportBucket bool

var exportCmd = &cobra.Command{
	Use:       "export [samples|minerals|stats]",
	Short:     "Export stored samples as CSV",
	Long:      "Writes a CSV of the samples passing the configured filter into export.dir, or uploads it to the configured bucket with --bucket and prints a download link.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"samples", "minerals", "stats"},
	RunE:      runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportBucket, "bucket", false, "upload to the configured S3-compatible bucket")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	kind := "samples"
	if len(args) == 1 {
		kind = args[0]
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := st.List(ctx)
	if err != nil {
		return err
	}
	samples := filter.Apply(setupFilter(cfg.Filters), all)

	var records []export.Record
	switch kind {
	case "samples":
		records = export.SampleRecords(samples)
	case "minerals":
		records = export.MineralRecords(samples)
	case "stats":
		records = stats.Build(samples).MineralRecords()
	}

	d, err := setupDownloader(ctx, cfg, exportBucket, logger)
	if err != nil {
		return err
	}
	loc, err := d.DownloadAsCSV(ctx, records, exportName(kind, "csv"))
	if err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("exported %d rows", len(records)))
	fmt.Println(loc)
	return nil
}
