// Package entrez provides a rate-limited, retrying client for the NCBI
// Entrez E-utilities (esearch/esummary against db=nuccore), with
// optional Redis response caching and error classification.
package entrez

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/seqtools/genbank-resolver/pkg/cache"
	"github.com/seqtools/genbank-resolver/pkg/logging"
	"github.com/seqtools/genbank-resolver/pkg/ratelimit"
)

// DefaultBaseURL is the public Entrez E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// nuccore is the sequence database all lookups run against.
const database = "nuccore"

// Prometheus metrics for Entrez client operations.
var (
	entrezRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entrez_requests_total",
		Help: "Total Entrez requests by endpoint and status",
	}, []string{"endpoint", "status"})

	entrezRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "entrez_request_duration_seconds",
		Help:    "Entrez request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	entrezErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entrez_errors_total",
		Help: "Total Entrez errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the E-utilities service (default: DefaultBaseURL).
	BaseURL string

	// APIKey is the caller's NCBI API key (optional; raises the
	// caller's allowed request rate from 3/s to 10/s).
	APIKey string

	// Tool and Email identify the caller to NCBI (optional but
	// recommended by E-utilities usage policy).
	Tool  string
	Email string

	// Timeout bounds each individual call attempt.
	Timeout time.Duration

	// MaxRetries is the total attempt budget per call.
	MaxRetries int

	// RequestDelay spaces outbound calls (shared pacer) and seeds the
	// exponential backoff.
	RequestDelay time.Duration

	// MaxBackoff caps backoff growth.
	MaxBackoff time.Duration

	// MaxInFlight bounds simultaneous outbound calls.
	MaxInFlight int

	// Redis enables response caching when non-nil.
	Redis *redis.Client

	// CacheTTL is the cache entry lifetime (default 1h when caching).
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      15 * time.Second,
		MaxRetries:   5,
		RequestDelay: 500 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
		MaxInFlight:  5,
		CacheTTL:     time.Hour,
	}
}

// Client is the Entrez E-utilities client.
type Client struct {
	httpClient *http.Client
	config     Config
	pacer      *ratelimit.Pacer
	inflight   *semaphore.Weighted
	cache      *cache.Manager
	logger     zerolog.Logger
}

// New creates a new Entrez client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %v)", cfg.Timeout)
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}
	if cfg.MaxInFlight < 1 {
		return nil, fmt.Errorf("max_in_flight must be >= 1 (got %d)", cfg.MaxInFlight)
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	logger := logging.NewLogger("entrez-client")

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	return &Client{
		httpClient: &http.Client{},
		config:     cfg,
		pacer:      ratelimit.NewPacer(cfg.RequestDelay, logger),
		inflight:   semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		cache:      cacheManager,
		logger:     logger,
	}, nil
}

// Search runs esearch for term and returns the matching nuccore UIDs in
// the order Entrez ranked them. An empty slice means no matches.
func (c *Client) Search(ctx context.Context, term string) ([]string, error) {
	params := url.Values{
		"db":      []string{database},
		"term":    []string{term},
		"retmode": []string{"json"},
	}

	body, err := c.getJSON(ctx, "esearch", params)
	if err != nil {
		return nil, err
	}

	var payload esearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: esearch: %v", ErrUnexpectedPayload, err)
	}
	if payload.Result == nil {
		return nil, fmt.Errorf("%w: esearch response missing esearchresult", ErrUnexpectedPayload)
	}

	return payload.Result.IDList, nil
}

// Summary runs esummary for one nuccore UID and returns its record.
func (c *Client) Summary(ctx context.Context, uid string) (*Record, error) {
	params := url.Values{
		"db":      []string{database},
		"id":      []string{uid},
		"retmode": []string{"json"},
	}

	body, err := c.getJSON(ctx, "esummary", params)
	if err != nil {
		return nil, err
	}

	return parseSummary(body, uid)
}

// getJSON performs one paced, retried, optionally cached GET against an
// E-utility endpoint and returns the raw JSON body.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	cacheKey := cache.Key{Endpoint: endpoint, Params: params}

	if c.cache != nil {
		body, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Msg("Cache hit")
			return body, nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	callURL := c.buildURL(endpoint, params)

	startTime := time.Now()
	defer func() {
		entrezRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	retryCfg := RetryConfig{
		MaxAttempts:    c.config.MaxRetries,
		InitialBackoff: c.config.RequestDelay,
		MaxBackoff:     c.config.MaxBackoff,
	}
	if retryCfg.InitialBackoff <= 0 {
		retryCfg.InitialBackoff = 500 * time.Millisecond
	}

	var body []byte
	retryErr := retryWithBackoff(ctx, c.logger, retryCfg, func() error {
		data, err := c.attempt(ctx, endpoint, callURL)
		if err != nil {
			entrezErrorsTotal.WithLabelValues(string(Classify(err))).Inc()
			return err
		}
		body = data
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		}
	}

	return body, nil
}

// attempt executes a single outbound call: pacer wait, semaphore slot,
// bounded request, classification of the outcome.
func (c *Client) attempt(ctx context.Context, endpoint, callURL string) ([]byte, error) {
	// Intentional throttle, distinct from backoff on failure
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, &EntrezError{
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "pacer wait interrupted",
			Err:        err,
		}
	}

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, &EntrezError{
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "in-flight slot wait interrupted",
			Err:        err,
		}
	}
	defer c.inflight.Release(1)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, callURL, nil)
	if err != nil {
		return nil, &EntrezError{
			ErrorClass: ErrorClassClient,
			Endpoint:   endpoint,
			Message:    "create request",
			Err:        err,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		entrezRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &EntrezError{
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	entrezRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Entrez request error")
		return nil, &EntrezError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Endpoint:   endpoint,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EntrezError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "read response body",
			Err:        err,
		}
	}

	// Entrez reports rate limiting in the body with a 200 status
	if msg, limited := bodyRateLimit(body); limited {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Str("error", msg).
			Msg("Entrez rate limit reported in body")
		return nil, &EntrezError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassRateLimit,
			Endpoint:   endpoint,
			Message:    msg,
		}
	}

	return body, nil
}

// buildURL assembles the endpoint URL with credentials appended.
func (c *Client) buildURL(endpoint string, params url.Values) string {
	full := url.Values{}
	for key, vals := range params {
		full[key] = vals
	}
	if c.config.APIKey != "" {
		full.Set("api_key", c.config.APIKey)
	}
	if c.config.Tool != "" {
		full.Set("tool", c.config.Tool)
	}
	if c.config.Email != "" {
		full.Set("email", c.config.Email)
	}

	return fmt.Sprintf("%s/%s.fcgi?%s", strings.TrimRight(c.config.BaseURL, "/"), endpoint, full.Encode())
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// bodyRateLimit reports whether a 200 response body carries an Entrez
// rate limit error.
func bodyRateLimit(body []byte) (string, bool) {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", false
	}
	if strings.Contains(probe.Error, "API rate limit exceeded") {
		return probe.Error, true
	}
	return "", false
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
