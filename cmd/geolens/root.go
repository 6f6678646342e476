package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/ai"
	"github.com/amishk599/geolens/internal/config"
	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/notifier"
	"github.com/amishk599/geolens/internal/retry"
	"github.com/amishk599/geolens/internal/storage"
	"github.com/amishk599/geolens/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "geolens",
	Short:         "AI mineral analysis for rock-sample photos",
	Long:          "GeoLens sends rock-sample photos to a vision model, stores the mineral analyses and turns them into digests, dashboards and CSV exports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: GEOLENS_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > GEOLENS_CONFIG env var > "./config.yaml".
// Only the implicit ./config.yaml may be missing; defaults are used then.
func loadConfig(path string) (*config.Config, error) {
	allowMissing := false
	if path == "" {
		if env := os.Getenv("GEOLENS_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
			allowMissing = true
		}
	}
	return config.LoadOrDefault(path, allowMissing)
}

// setupLogger writes to stderr so command output on stdout stays pipeable.
func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupGenerator(cfg *config.Config) (ai.Generator, error) {
	httpClient := &http.Client{Timeout: cfg.AI.Timeout}
	switch cfg.AI.Provider {
	case "gemini":
		return ai.NewGeminiProvider(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, httpClient), nil
	case "openai":
		return ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient), nil
	case "static":
		return ai.NewStaticProvider(cfg.AI.StaticDir), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
}

func setupClient(cfg *config.Config, logger *slog.Logger) (*ai.Client, error) {
	gen, err := setupGenerator(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("ai backend", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	return ai.NewClient(gen, logger), nil
}

// setupNotifier builds the configured notifier. Retry waits end when ctx is done.
func setupNotifier(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Debug("using slack notifier")
		slack := notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
		return retry.NewRetryNotifier(slack, 2, 5*time.Second, logger).StopOn(ctx)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupFilter(f config.FilterConfig) model.SampleFilter {
	return filter.NewRockAndMineralFilter(f.RockKeywords, f.Minerals, f.MinPercentage)
}

func openStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	return s, nil
}

// setupReporter wires the configured filter and notifier around st.
func setupReporter(ctx context.Context, cfg *config.Config, st model.SampleStore, logger *slog.Logger) (*intake.Reporter, error) {
	client, err := setupClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	n := setupNotifier(ctx, cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	return intake.NewReporter(client, st, setupFilter(cfg.Filters), n, logger), nil
}

// setupDownloader targets the configured bucket when toBucket is set,
// the export directory otherwise.
func setupDownloader(ctx context.Context, cfg *config.Config, toBucket bool, logger *slog.Logger) (*export.Downloader, error) {
	if !toBucket {
		return export.NewDownloader(export.NewDirTarget(cfg.Export.Dir), nil, logger), nil
	}

	b := cfg.Export.Bucket
	if !b.Enabled() {
		return nil, fmt.Errorf("--bucket needs export.bucket.endpoint and export.bucket.name in config")
	}
	target, err := storage.NewBucketTarget(storage.Options{
		Endpoint:   b.Endpoint,
		AccessKey:  b.AccessKey,
		SecretKey:  b.SecretKey,
		Bucket:     b.Name,
		Region:     b.Region,
		UseSSL:     b.UseSSL,
		Prefix:     b.Prefix,
		PresignTTL: b.PresignTTL,
	})
	if err != nil {
		return nil, err
	}
	if err := target.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return export.NewDownloader(target, nil, logger), nil
}

func exportName(base, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, time.Now().Format("20060102-150405"), ext)
}
