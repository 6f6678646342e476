package intake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/model"
)

// Reporter builds digests over the stored samples:
// list -> filter -> summarize -> notify.
type Reporter struct {
	summarizer Summarizer
	store      model.SampleStore
	filter     model.SampleFilter
	notifier   model.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewReporter creates a reporter. filter and notifier may be nil.
func NewReporter(
	summarizer Summarizer,
	store model.SampleStore,
	f model.SampleFilter,
	notifier model.Notifier,
	logger *slog.Logger,
) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{
		summarizer: summarizer,
		store:      store,
		filter:     f,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Samples returns the stored samples that pass the reporter's filter.
func (r *Reporter) Samples(ctx context.Context) ([]model.Sample, error) {
	samples, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	return filter.Apply(r.filter, samples), nil
}

// Digest summarizes the filtered samples. An empty store still produces a
// digest; the model is asked to summarize an empty list.
func (r *Reporter) Digest(ctx context.Context) (model.Digest, error) {
	samples, err := r.Samples(ctx)
	if err != nil {
		return model.Digest{}, err
	}

	summary, err := r.summarizer.Summarize(ctx, model.Analyses(samples))
	if err != nil {
		return model.Digest{}, fmt.Errorf("summarizing %d samples: %w", len(samples), err)
	}

	d := model.Digest{
		Title:       fmt.Sprintf("Field digest: %d samples", len(samples)),
		Summary:     summary,
		SampleCount: len(samples),
		GeneratedAt: r.now().UTC(),
	}
	r.logger.Info("digest generated", "samples", d.SampleCount, "chars", len(summary))
	return d, nil
}

// Publish hands d to the configured notifier.
func (r *Reporter) Publish(d model.Digest) error {
	if r.notifier == nil {
		return fmt.Errorf("no notifier configured")
	}
	if err := r.notifier.Notify(d); err != nil {
		return fmt.Errorf("notifying digest: %w", err)
	}
	return nil
}
