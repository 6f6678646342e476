package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/export"
)

var (
	summaryOut    string
	summaryNotify bool
	summaryRaw    bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write a narrative digest of the stored samples",
	Long:  "Asks the model for a markdown digest of the samples passing the configured filter.",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryOut, "out", "o", "", "also save the digest as a text file at this path")
	summaryCmd.Flags().BoolVar(&summaryNotify, "notify", false, "send the digest to the configured notifier")
	summaryCmd.Flags().BoolVar(&summaryRaw, "raw", false, "print markdown without terminal rendering")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reporter, err := setupReporter(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Writing digest..."
	s.Start()
	d, err := reporter.Digest(ctx)
	s.Stop()
	if err != nil {
		return err
	}
	printSuccess(d.Title)

	if summaryRaw {
		fmt.Println(d.Summary)
	} else {
		fmt.Print(renderMarkdown(d.Summary))
	}

	if summaryOut != "" {
		loc, err := saveText(ctx, d.Summary, summaryOut)
		if err != nil {
			return err
		}
		printSuccess("saved " + loc)
	}

	if summaryNotify {
		if err := reporter.Publish(d); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		printSuccess("digest sent via " + cfg.Notification.Type)
	}
	return nil
}

// saveText writes text to path through a directory-targeted download.
func saveText(ctx context.Context, text, path string) (string, error) {
	d := export.NewDownloader(export.NewDirTarget(filepath.Dir(path)), nil, nil)
	return d.DownloadAsText(ctx, text, filepath.Base(path))
}

// renderMarkdown falls back to the raw text when the terminal renderer fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md + "\n"
	}
	out, err := r.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}
