package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/config"
	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/model"
)

var (
	samplesRock    []string
	samplesMineral []string
	samplesMinPct  float64
	samplesAll     bool
	samplesJSON    bool
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List stored samples",
	Long:  "Lists stored samples, oldest first. The configured filter applies unless --all or filter flags are given.",
	Args:  cobra.NoArgs,
	RunE:  runSamples,
}

var samplesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runSamplesShow,
}

var samplesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runSamplesDelete,
}

func init() {
	samplesCmd.Flags().StringSliceVar(&samplesRock, "rock", nil, "rock name keywords (comma separated)")
	samplesCmd.Flags().StringSliceVar(&samplesMineral, "mineral", nil, "mineral names (comma separated)")
	samplesCmd.Flags().Float64Var(&samplesMinPct, "min-pct", 0, "minimum percentage for --mineral matches")
	samplesCmd.Flags().BoolVar(&samplesAll, "all", false, "ignore the configured filter")
	samplesCmd.Flags().BoolVar(&samplesJSON, "json", false, "print samples as JSON")
	samplesCmd.AddCommand(samplesShowCmd, samplesDeleteCmd)
	rootCmd.AddCommand(samplesCmd)
}

// sampleFilterFromFlags returns nil when every sample should be listed.
func sampleFilterFromFlags(cfg *config.Config) model.SampleFilter {
	switch {
	case len(samplesRock) > 0 || len(samplesMineral) > 0:
		return filter.NewRockAndMineralFilter(samplesRock, samplesMineral, samplesMinPct)
	case samplesAll:
		return nil
	default:
		return setupFilter(cfg.Filters)
	}
}

func runSamples(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if samplesMinPct < 0 || samplesMinPct > 100 {
		return fmt.Errorf("--min-pct must be between 0 and 100, got %v", samplesMinPct)
	}

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	samples := filter.Apply(sampleFilterFromFlags(cfg), all)

	if samplesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)
	}

	if len(samples) == 0 {
		fmt.Println("No samples.")
		return nil
	}
	dim := color.New(color.Faint)
	rock := color.New(color.FgCyan, color.Bold)
	for _, s := range samples {
		fmt.Printf("%s  %s  ", dim.Sprint(s.ID), s.CreatedAt.Local().Format("2006-01-02 15:04"))
		rock.Print(orUnidentified(s.Analysis.RockName))
		fmt.Printf("  %d minerals  %s\n", len(s.Analysis.IdentifiedMinerals), dim.Sprint(s.FileName))
	}
	if len(samples) != len(all) {
		dim.Printf("\n%d of %d samples shown\n", len(samples), len(all))
	}
	return nil
}

func runSamplesShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printSample(s)
	return nil
}

func runSamplesDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	printSuccess("deleted " + args[0])
	return nil
}
