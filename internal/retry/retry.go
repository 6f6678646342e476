// Package retry wraps digest notifiers with backoff for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/geolens/internal/model"
)

// Ensure RetryNotifier implements model.Notifier.
var _ model.Notifier = (*RetryNotifier)(nil)

// RetryNotifier is a decorator that retries transient delivery failures with
// exponential backoff and jitter before giving up.
type RetryNotifier struct {
	inner      model.Notifier
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	done       <-chan struct{}

	// sleep waits d and reports false when interrupted by done.
	sleep func(d time.Duration, done <-chan struct{}) bool
}

// NewRetryNotifier wraps a Notifier with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryNotifier(inner model.Notifier, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryNotifier {
	return &RetryNotifier{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
		sleep:      sleepOrDone,
	}
}

// StopOn makes pending backoff waits end as soon as ctx is done. The
// in-flight attempt is not interrupted.
func (n *RetryNotifier) StopOn(ctx context.Context) *RetryNotifier {
	n.done = ctx.Done()
	return n
}

func sleepOrDone(d time.Duration, done <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}

// Notify delivers d, retrying on transient errors.
func (n *RetryNotifier) Notify(d model.Digest) error {
	err := n.inner.Notify(d)
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		delay := n.backoffDelay(attempt, lastErr)

		n.logger.Warn("retrying digest delivery after transient error",
			"attempt", attempt,
			"max_retries", n.maxRetries,
			"delay", delay,
			"error", lastErr,
		)
		if !n.sleep(delay, n.done) {
			n.logger.Warn("digest delivery retry abandoned on shutdown", "attempt", attempt)
			return fmt.Errorf("retry abandoned: %w", lastErr)
		}

		err = n.inner.Notify(d)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (n *RetryNotifier) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := n.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS, etc.) are retryable.
	return true
}
