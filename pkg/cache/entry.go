package cache

import (
	"time"
)

// Entry represents a cached Entrez response body.
type Entry struct {
	// Body is the raw JSON response payload
	Body []byte `json:"body"`

	// CachedAt is when this response was stored
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
