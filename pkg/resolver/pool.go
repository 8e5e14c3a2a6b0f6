package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/seqtools/genbank-resolver/pkg/logging"
)

// Prometheus metrics for batch resolution.
var (
	resolverBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_batches_total",
		Help: "Total resolution batches processed",
	})

	resolverBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resolver_batch_duration_seconds",
		Help:    "Wall-clock duration of resolution batches",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120},
	})

	resolverTermsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resolver_terms_total",
		Help: "Terms processed by terminal status",
	}, []string{"status"})
)

// Pool fans a batch of terms out over a fixed number of workers.
type Pool struct {
	resolver *Resolver
	workers  int
	logger   zerolog.Logger
}

// NewPool creates a pool of the given size. Sizes below 1 are clamped
// to 1.
func NewPool(resolver *Resolver, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		resolver: resolver,
		workers:  workers,
		logger:   logging.NewLogger("resolver-pool"),
	}
}

// job pairs a term with its input position so duplicate terms keep
// independent outcomes.
type job struct {
	index int
	term  string
}

// ResolveAll resolves every term and returns one outcome per input
// term, in input order. A term's failure never blocks or cancels its
// siblings; the call returns only once every term has a terminal
// outcome.
func (p *Pool) ResolveAll(ctx context.Context, terms []string) []Outcome {
	start := time.Now()
	resolverBatchesTotal.Inc()

	p.logger.Info().
		Int("terms", len(terms)).
		Int("workers", p.workers).
		Msg("Starting batch resolution")

	outcomes := make([]Outcome, len(terms))

	jobs := make(chan job, len(terms))
	for i, term := range terms {
		jobs <- job{index: i, term: term}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, outcomes, &wg, i)
	}
	wg.Wait()

	counts := CountByStatus(outcomes)
	for status, n := range counts {
		resolverTermsTotal.WithLabelValues(string(status)).Add(float64(n))
	}

	p.logger.Info().
		Int("terms", len(terms)).
		Int("resolved", counts[StatusResolved]).
		Int("not_found", counts[StatusNotFound]).
		Int("failed", counts[StatusFailed]).
		Dur("duration", time.Since(start)).
		Msg("Batch resolution complete")

	resolverBatchDuration.Observe(time.Since(start).Seconds())

	return outcomes
}

// worker drains the job queue. Each job gets a terminal outcome even
// when the batch context is cancelled mid-flight.
func (p *Pool) worker(ctx context.Context, jobs <-chan job, outcomes []Outcome, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for j := range jobs {
		select {
		case <-ctx.Done():
			outcomes[j.index] = failed(j.term, StepSearch, KindNetwork, ctx.Err())
			continue
		default:
		}

		outcomes[j.index] = p.resolver.Resolve(ctx, j.term)
		processed++
	}

	if processed > 0 {
		p.logger.Debug().
			Int("worker_id", workerID).
			Int("terms_processed", processed).
			Msg("Worker completed")
	}
}

// CountByStatus tallies outcomes by terminal status.
func CountByStatus(outcomes []Outcome) map[Status]int {
	counts := make(map[Status]int, 3)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
