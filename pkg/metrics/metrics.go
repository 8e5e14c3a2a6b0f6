// Package metrics provides the centralized Prometheus metrics registry
// for the accession resolver. All metrics are defined in their
// respective packages (entrez, resolver, cache, ratelimit) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the resolver.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/entrez):
//   - entrez_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - entrez_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - entrez_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/entrez):
//   - entrez_retries_total{error_class} (Counter): Retry attempts by error class
//   - entrez_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - entrez_retry_exhausted_total{error_class} (Counter): Calls that exhausted max retries
//
// Pacing Metrics (pkg/ratelimit):
//   - entrez_throttle_wait_seconds (Histogram): Time spent waiting on the request pacer
//   - entrez_throttled_calls_total (Counter): Calls that had to wait on the pacer
//
// Cache Metrics (pkg/cache):
//   - entrez_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - entrez_cache_misses_total (Counter): Cache misses
//   - entrez_cache_errors_total{operation} (Counter): Cache operation errors
//
// Batch Metrics (pkg/resolver):
//   - resolver_batches_total (Counter): Resolution batches processed
//   - resolver_batch_duration_seconds (Histogram): Batch wall-clock duration
//   - resolver_terms_total{status} (Counter): Terms by terminal status (resolved, not_found, failed)
//
// Example Prometheus Queries:
//
//   # Resolution success rate
//   sum(rate(resolver_terms_total{status="resolved"}[5m])) /
//   sum(rate(resolver_terms_total[5m]))
//
//   # Entrez error rate by class
//   rate(entrez_errors_total[5m])
//
//   # P95 Entrez latency
//   histogram_quantile(0.95, rate(entrez_request_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   sum(rate(entrez_cache_hits_total[5m])) /
//   (sum(rate(entrez_cache_hits_total[5m])) + sum(rate(entrez_cache_misses_total[5m])))
