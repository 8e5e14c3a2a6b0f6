// Package ratelimit implements cooperative request pacing for the NCBI
// Entrez API. Entrez allows 3 requests/second without an API key and 10
// with one; the pacer spaces outbound calls so a whole batch stays under
// that budget regardless of how many workers issue them.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	entrezThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "entrez_throttle_wait_seconds",
		Help:    "Time spent waiting on the request pacer before each Entrez call",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	entrezThrottledCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entrez_throttled_calls_total",
		Help: "Total Entrez calls that had to wait on the request pacer",
	})
)

// Pacer gates outbound Entrez calls to one per interval. It is shared by
// all workers of a batch; each call blocks in Wait until its slot comes
// up. A nil or zero-interval Pacer imposes no delay.
type Pacer struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewPacer creates a pacer that releases one call per interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration, logger zerolog.Logger) *Pacer {
	if interval <= 0 {
		return &Pacer{logger: logger}
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

// Wait blocks until the next request slot is available or the context is
// cancelled. Returns the context error on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}

	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	waited := time.Since(start)
	entrezThrottleWaitSeconds.Observe(waited.Seconds())
	if waited > time.Millisecond {
		entrezThrottledCallsTotal.Inc()
		p.logger.Debug().
			Dur("waited", waited).
			Msg("Request paced")
	}

	return nil
}

// Interval returns the configured spacing between calls, or 0 when
// pacing is disabled.
func (p *Pacer) Interval() time.Duration {
	if p == nil || p.limiter == nil {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}
