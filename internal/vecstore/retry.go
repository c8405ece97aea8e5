package vecstore

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// retryConfig bounds the retry loop for transient database errors.
type retryConfig struct {
	maxAttempts int
	delay       time.Duration // grows linearly with the attempt number
}

// withRetry runs fn up to maxAttempts times. Only transient errors are
// retried; everything else returns immediately. Backoff between attempts
// is linear (delay, 2*delay, ...), never exponential.
func withRetry[T any](ctx context.Context, cfg retryConfig, logger *slog.Logger, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isTransient(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt < cfg.maxAttempts {
			wait := cfg.delay * time.Duration(attempt)
			logger.Warn("retrying vector store operation",
				"op", op, "attempt", attempt, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return zero, lastErr
}

// isTransient reports whether an error is worth retrying: timeouts,
// deadline expiry, and requests pgx never sent.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return pgconn.SafeToRetry(err)
}
