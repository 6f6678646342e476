package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/watcher"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Analyze images as they appear in a folder",
	Long:  "Watches a directory and analyzes new or changed images one at a time once they stop changing; blocks until SIGINT/SIGTERM.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (default: watch.dir from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	dir := cfg.Watch.Dir
	if watchDir != "" {
		dir = watchDir
	}
	if dir == "" {
		return fmt.Errorf("no directory to watch: set watch.dir in config or pass --dir")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := setupClient(cfg, logger)
	if err != nil {
		return err
	}

	w := watcher.New(dir, cfg.Watch.Extensions, cfg.Watch.Settle, intake.New(client, st, logger), logger)
	logger.Info("watching", "dir", dir, "extensions", cfg.Watch.Extensions, "settle", cfg.Watch.Settle.String())
	if err := w.Run(ctx); err != nil {
		return err
	}

	logger.Info("goodbye")
	return nil
}
