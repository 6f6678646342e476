package notifier

import (
	"log/slog"

	"github.com/amishk599/geolens/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes digests to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each digest via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the digest. It never fails.
func (n *LogNotifier) Notify(d model.Digest) error {
	n.logger.Info("digest",
		"title", d.Title,
		"samples", d.SampleCount,
		"generated_at", d.GeneratedAt,
		"summary_chars", len(d.Summary),
	)
	return nil
}
