// Command accession-server exposes the batch accession resolver as an
// HTTP endpoint. The resolution engine lives in pkg/resolver; this
// binary only parses the request surface, runs a batch, and serializes
// the mapping.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/seqtools/genbank-resolver/pkg/entrez"
	"github.com/seqtools/genbank-resolver/pkg/logging"
	"github.com/seqtools/genbank-resolver/pkg/resolver"
)

// Request parameter defaults, matching the engine's defaults.
const (
	defaultTimeout      = 15 * time.Second
	defaultNumWorkers   = 5
	defaultMaxRetries   = 5
	defaultRequestDelay = 500 * time.Millisecond
)

// serverConfig is the daemon configuration, loadable from a YAML file
// with flag and environment overrides.
type serverConfig struct {
	Addr      string        `yaml:"addr"`
	LogLevel  string        `yaml:"log_level"`
	Pretty    bool          `yaml:"pretty"`
	RedisURL  string        `yaml:"redis_url"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	EntrezURL string        `yaml:"entrez_url"`
	Tool      string        `yaml:"tool"`
	Email     string        `yaml:"email"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Addr:      ":" + getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		RedisURL:  getEnv("REDIS_URL", ""),
		CacheTTL:  time.Hour,
		EntrezURL: entrez.DefaultBaseURL,
		Tool:      getEnv("ENTREZ_TOOL", "genbank-resolver"),
		Email:     getEnv("ENTREZ_EMAIL", ""),
	}
}

func loadConfig(args []string) (serverConfig, error) {
	cfg := defaultServerConfig()

	flags := pflag.NewFlagSet("accession-server", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to YAML config file")
	addr := flags.String("addr", cfg.Addr, "Listen address")
	logLevel := flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pretty := flags.Bool("pretty", false, "Human-readable log output")
	redisURL := flags.String("redis-url", cfg.RedisURL, "Redis address for response caching (empty disables caching)")
	cacheTTL := flags.Duration("cache-ttl", cfg.CacheTTL, "Cache entry lifetime")
	entrezURL := flags.String("entrez-url", cfg.EntrezURL, "Entrez E-utilities base URL")
	tool := flags.String("tool", cfg.Tool, "Entrez tool identifier")
	email := flags.String("email", cfg.Email, "Entrez contact email")

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// Flags win over file values when set explicitly
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "pretty":
			cfg.Pretty = *pretty
		case "redis-url":
			cfg.RedisURL = *redisURL
		case "cache-ttl":
			cfg.CacheTTL = *cacheTTL
		case "entrez-url":
			cfg.EntrezURL = *entrezURL
		case "tool":
			cfg.Tool = *tool
		case "email":
			cfg.Email = *email
		}
	})

	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.Pretty,
		Output: os.Stderr,
	})

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis_url", cfg.RedisURL).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("redis_url", cfg.RedisURL).Msg("Response caching enabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/fetch-accession", fetchAccessionHandler(cfg, redisClient, logger))
	mux.HandleFunc("/fetch-accession/", fetchAccessionHandler(cfg, redisClient, logger))

	logger.Info().
		Str("addr", cfg.Addr).
		Str("entrez_url", cfg.EntrezURL).
		Msg("Starting accession server")

	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, fmt.Sprintf("redis unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// batchParams is the per-request resolution configuration parsed from
// the query string.
type batchParams struct {
	terms        []string
	apiKey       string
	timeout      time.Duration
	numWorkers   int
	maxRetries   int
	requestDelay time.Duration
}

// parseBatchParams validates the query surface of /fetch-accession.
func parseBatchParams(r *http.Request) (batchParams, error) {
	q := r.URL.Query()

	p := batchParams{
		apiKey:       q.Get("api_key"),
		timeout:      defaultTimeout,
		numWorkers:   defaultNumWorkers,
		maxRetries:   defaultMaxRetries,
		requestDelay: defaultRequestDelay,
	}

	raw := q.Get("terms")
	for _, term := range strings.Split(raw, ",") {
		if term = strings.TrimSpace(term); term != "" {
			p.terms = append(p.terms, term)
		}
	}
	if len(p.terms) == 0 {
		return p, fmt.Errorf("terms parameter is required")
	}

	if v := q.Get("timeout"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 1 {
			return p, fmt.Errorf("timeout must be a positive integer (seconds)")
		}
		p.timeout = time.Duration(secs) * time.Second
	}
	if v := q.Get("num_workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("num_workers must be a positive integer")
		}
		p.numWorkers = n
	}
	if v := q.Get("max_retries"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("max_retries must be a positive integer")
		}
		p.maxRetries = n
	}
	if v := q.Get("request_delay"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs < 0 {
			return p, fmt.Errorf("request_delay must be a non-negative number (seconds)")
		}
		p.requestDelay = time.Duration(secs * float64(time.Second))
	}

	return p, nil
}

func fetchAccessionHandler(cfg serverConfig, redisClient *redis.Client, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseBatchParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		clientCfg := entrez.DefaultConfig()
		clientCfg.BaseURL = cfg.EntrezURL
		clientCfg.APIKey = params.apiKey
		clientCfg.Tool = cfg.Tool
		clientCfg.Email = cfg.Email
		clientCfg.Timeout = params.timeout
		clientCfg.MaxRetries = params.maxRetries
		clientCfg.RequestDelay = params.requestDelay
		clientCfg.MaxInFlight = params.numWorkers
		clientCfg.Redis = redisClient
		clientCfg.CacheTTL = cfg.CacheTTL

		client, err := entrez.New(clientCfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		pool := resolver.NewPool(resolver.New(client), params.numWorkers)
		outcomes := pool.ResolveAll(r.Context(), params.terms)
		mapping := resolver.Aggregate(outcomes)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(mapping); err != nil {
			logger.Error().Err(err).Msg("Failed to write response")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
