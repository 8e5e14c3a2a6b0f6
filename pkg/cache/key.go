package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached Entrez response.
type Key struct {
	// Endpoint is the E-utility name (e.g. "esearch", "esummary")
	Endpoint string

	// Params are the request query parameters
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: entrez:endpoint:param1=val1:param2=val2
//
// Example:
//
//	entrez:esearch:db=nuccore:term=WA-PHL-007327
//
// Credentials are excluded: an api_key changes the caller's rate
// budget, not the response payload.
func (k Key) String() string {
	parts := []string{"entrez"}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			if key == "api_key" {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
