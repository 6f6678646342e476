package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/browse"
	"github.com/amishk599/geolens/internal/config"
	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/stats"
	"github.com/amishk599/geolens/internal/store"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse samples interactively (TUI)",
	Long:  "Shows the rock-type picker, then the split-pane sample browser.",
	Args:  cobra.NoArgs,
	RunE:  runBrowseCmd,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// Log output before the alt screen starts corrupts the display.
	silentLogger := discardLogger()

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := setupClient(cfg, silentLogger)
	if err != nil {
		return err
	}
	opts := browse.Options{
		Summarizer: client,
		Downloader: export.NewDownloader(export.NewDirTarget(cfg.Export.Dir), nil, silentLogger),
	}
	return runBrowse(cfg, st, opts)
}

func runBrowse(cfg *config.Config, st *store.SQLStore, opts browse.Options) error {
	for {
		all, err := browse.RunLoader("Loading samples", 30*time.Second, st.List)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No samples yet. Run `geolens analyze <image>` first.")
			return nil
		}

		rock, ok, err := browse.RunRockPicker(stats.Build(all))
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if !ok {
			return nil
		}

		pool, matched, title := splitForBrowse(all, rock, cfg.Filters)
		opts.Title = title

		wantQuit, err := browse.RunBrowseTUI(pool, matched, opts)
		if err != nil {
			return fmt.Errorf("browser: %w", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}

// splitForBrowse narrows all to the picked rock type (left pane) and then
// to the configured filter (right pane).
func splitForBrowse(all []model.Sample, rock string, f config.FilterConfig) (pool, matched []model.Sample, title string) {
	pool = all
	title = "Filtered"
	if rock != "" {
		pool = filter.Apply(rockNameFilter(rock), all)
		title = rock + " · filtered"
	}
	pool = append([]model.Sample(nil), pool...)
	matched = filter.Apply(setupFilter(f), pool)
	return pool, matched, title
}

// rockNameFilter matches the exact rock name the dashboard grouped by.
type rockNameFilter string

func (r rockNameFilter) Match(s model.Sample) bool {
	name := strings.TrimSpace(s.Analysis.RockName)
	if name == "" {
		name = stats.UnknownRock
	}
	return strings.EqualFold(name, string(r))
}
