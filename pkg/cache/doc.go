// Package cache provides optional caching of Entrez responses with a
// Redis backend.
//
// Entrez serves no cache-validation headers (no ETag, no Expires), so
// entries carry a fixed TTL chosen by the caller. Search results for a
// strain name and summaries for a nuccore UID change rarely; caching
// them cuts repeat traffic against the shared NCBI rate budget.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager with a 1 hour TTL
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	// Create cache key
//	key := cache.Key{
//		Endpoint: "esearch",
//		Params:   url.Values{"db": []string{"nuccore"}, "term": []string{"WA-PHL-007327"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from Entrez, then manager.Set(ctx, key, body)
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - entrez_cache_hits_total{layer="redis"} - Cache hits
//   - entrez_cache_misses_total - Cache misses
//   - entrez_cache_errors_total{operation} - Cache operation errors
//
// Cache failures are never fatal to a lookup; callers fall back to a
// direct Entrez request.
package cache
