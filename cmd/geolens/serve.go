package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/httpserver"
	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/scheduler"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serves sample upload, listing, digests, dashboard and CSV exports, and publishes a digest every notification.digest_interval when set; blocks until SIGINT/SIGTERM.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
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
	reporter, err := setupReporter(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Intake:      intake.New(client, st, logger),
		Reporter:    reporter,
		Store:       st,
		URLs:        export.NewObjectURLs(),
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	// Model calls dominate request time, so writes get the AI timeout plus slack.
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// The scheduler is joined before the deferred store close runs.
	schedDone := startScheduler(ctx, reporter, cfg.Notification.DigestInterval, logger)
	defer func() {
		stop()
		<-schedDone
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "provider", cfg.AI.Provider, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("goodbye")
	return nil
}

// startScheduler runs the digest loop until ctx is done. The returned
// channel is closed once the loop has exited; it is closed immediately
// when every is zero.
func startScheduler(ctx context.Context, source scheduler.DigestSource, every time.Duration, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if every <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		_ = scheduler.NewScheduler(source, every, logger).Run(ctx)
	}()
	return done
}
