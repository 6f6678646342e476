package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/stats"
	"github.com/amishk599/geolens/internal/store"
)

var (
	analyzeNoSave bool
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Analyze rock-sample photos",
	Long:  "Sends each image to the configured model and stores the mineral analysis. Images already stored (same bytes) are not re-analyzed.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "analyze without storing the result")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print samples as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sampleStore model.SampleStore
	if analyzeNoSave {
		sampleStore = store.NewNopStore()
	} else {
		sqlStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer sqlStore.Close()
		sampleStore = sqlStore
	}

	client, err := setupClient(cfg, logger)
	if err != nil {
		return err
	}
	in := intake.New(client, sampleStore, logger)

	var failed []error
	for _, path := range args {
		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Analyzing " + filepath.Base(path) + "..."
		s.Start()
		res, err := in.IngestFile(ctx, path)
		s.Stop()
		if err != nil {
			printFailure(fmt.Sprintf("%s: %v", path, err))
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.Sample); err != nil {
				return err
			}
			continue
		}
		if res.Duplicate {
			printSuccess(fmt.Sprintf("%s already analyzed as %s", path, res.Sample.ID))
		} else {
			printSuccess(fmt.Sprintf("%s analyzed", path))
		}
		printSample(res.Sample)
	}

	return errors.Join(failed...)
}

func printSuccess(msg string) {
	color.New(color.FgGreen).Fprint(os.Stderr, "✓ ")
	fmt.Fprintln(os.Stderr, msg)
}

func printFailure(msg string) {
	color.New(color.FgRed).Fprint(os.Stderr, "✗ ")
	fmt.Fprintln(os.Stderr, msg)
}

func printSample(s model.Sample) {
	a := s.Analysis
	label := color.New(color.FgYellow, color.Bold)

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Printf("🪨 %s\n", orUnidentified(a.RockName))
	fmt.Printf("   %s · %s\n", s.ID, s.FileName)
	if a.Description != "" {
		fmt.Println()
		fmt.Println(indentText(a.Description, "   "))
	}

	fmt.Println()
	label.Println("   Minerals")
	if len(a.IdentifiedMinerals) == 0 {
		fmt.Println("   (none identified)")
	}
	for _, m := range a.IdentifiedMinerals {
		fmt.Printf("   %-20s %5.1f%%", m.Name, m.Percentage)
		if m.Description != "" {
			fmt.Printf("  %s", m.Description)
		}
		fmt.Println()
	}

	if a.EconomicPotential != "" {
		fmt.Println()
		label.Println("   Economic potential")
		fmt.Println(indentText(a.EconomicPotential, "   "))
	}
	fmt.Println()
}

func orUnidentified(rock string) string {
	if strings.TrimSpace(rock) == "" {
		return stats.UnknownRock
	}
	return rock
}

func indentText(text, prefix string) string {
	return prefix + strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n"+prefix)
}
