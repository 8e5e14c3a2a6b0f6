package entrez

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	entrezRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entrez_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	entrezRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "entrez_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	entrezRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entrez_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget for one call, including
	// the initial request.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt. Each
	// subsequent wait doubles.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// The wait before attempt n+1 is InitialBackoff * 2^(n-1), capped at
// MaxBackoff; successive waits never shrink. fn errors are classified
// via Classify; non-retryable classes surface immediately. Respects
// context cancellation during the backoff wait.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass := Classify(err)

		if !shouldRetry(errorClass) {
			// Fatal classification: exactly one attempt
			return lastErr
		}

		// If this was the last attempt, don't wait
		if attempt >= config.MaxAttempts {
			break
		}

		entrezRetriesTotal.WithLabelValues(string(errorClass)).Inc()
		entrezRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(backoff.Seconds())

		logger.Warn().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(backoff):
			// Continue to next attempt
		}

		backoff *= 2
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	errorClass := Classify(lastErr)
	entrezRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
