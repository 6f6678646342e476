// Package scheduler publishes field digests on a fixed interval.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/amishk599/geolens/internal/model"
)

// DigestSource lists samples and turns them into a published digest.
// *intake.Reporter satisfies it.
type DigestSource interface {
	Samples(ctx context.Context) ([]model.Sample, error)
	Digest(ctx context.Context) (model.Digest, error)
	Publish(d model.Digest) error
}

// Scheduler owns the digest loop. A tick only reaches the model when the
// number of samples changed since the last published digest.
type Scheduler struct {
	source   DigestSource
	interval time.Duration
	logger   *slog.Logger

	lastCount int
}

// NewScheduler creates a scheduler that checks for new samples every interval.
func NewScheduler(source DigestSource, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Run ticks on the configured interval without publishing on start.
// It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting digest scheduler", "interval", s.interval.String())

	// Samples present at startup were covered by earlier digests.
	if samples, err := s.source.Samples(ctx); err == nil {
		s.lastCount = len(samples)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down digest scheduler")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	samples, err := s.source.Samples(ctx)
	if err != nil {
		s.logger.Error("listing samples failed", "error", err)
		return
	}
	if len(samples) == 0 || len(samples) == s.lastCount {
		s.logger.Debug("no new samples, skipping digest", "samples", len(samples))
		return
	}

	d, err := s.source.Digest(ctx)
	if err != nil {
		s.logger.Error("digest failed", "error", err)
		return
	}
	if err := s.source.Publish(d); err != nil {
		s.logger.Error("publishing digest failed", "error", err)
		return
	}
	s.lastCount = len(samples)
	s.logger.Info("digest published", "samples", d.SampleCount)
}
