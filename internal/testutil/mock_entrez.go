// Package testutil provides testing utilities for the GenBank
// accession resolver.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// StatusBodyRateLimit scripts a 200 response whose body carries the
// Entrez "API rate limit exceeded" error.
const StatusBodyRateLimit = -1

// MockEntrez is a configurable mock Entrez E-utilities server.
// Search results are keyed by term, summaries by UID, and failure
// sequences can be scripted per call so retry behavior is observable.
type MockEntrez struct {
	server *httptest.Server
	mu     sync.Mutex

	searchResults map[string][]string          // term -> uids
	records       map[string]map[string]string // uid -> docsum fields
	failures      map[string][]int             // call key -> pending failure statuses

	searchCalls  map[string]int
	summaryCalls map[string]int
	requestCount int

	delay       time.Duration
	inFlight    int
	maxInFlight int

	lastQuery url.Values
}

// NewMockEntrez creates a new mock Entrez server.
func NewMockEntrez() *MockEntrez {
	mock := &MockEntrez{
		searchResults: make(map[string][]string),
		records:       make(map[string]map[string]string),
		failures:      make(map[string][]int),
		searchCalls:   make(map[string]int),
		summaryCalls:  make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the mock server base URL, usable as the client's BaseURL.
func (m *MockEntrez) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockEntrez) Close() {
	m.server.Close()
}

// SetSearchResult configures the UID list returned for a term.
func (m *MockEntrez) SetSearchResult(term string, uids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchResults[term] = uids
}

// SetRecord configures the summary served for a UID.
func (m *MockEntrez) SetRecord(uid, accessionVersion, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[uid] = map[string]string{
		"accessionversion": accessionVersion,
		"title":            title,
	}
}

// SetRawRecord configures arbitrary docsum fields for a UID, for
// shaping malformed summaries.
func (m *MockEntrez) SetRawRecord(uid string, fields map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[uid] = fields
}

// FailSearch scripts failure statuses consumed by successive esearch
// calls for term before real results are served. Use
// StatusBodyRateLimit for a 200 response with an in-body rate limit
// error.
func (m *MockEntrez) FailSearch(term string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures["esearch:"+term] = append(m.failures["esearch:"+term], statuses...)
}

// FailSummary scripts failure statuses for successive esummary calls
// for uid.
func (m *MockEntrez) FailSummary(uid string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures["esummary:"+uid] = append(m.failures["esummary:"+uid], statuses...)
}

// SetDelay makes every response wait before completing, so concurrent
// calls overlap and the in-flight ceiling is observable.
func (m *MockEntrez) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// RequestCount returns the total number of requests served.
func (m *MockEntrez) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// SearchCalls returns how many esearch calls were made for term.
func (m *MockEntrez) SearchCalls(term string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls[term]
}

// SummaryCalls returns how many esummary calls were made for uid.
func (m *MockEntrez) SummaryCalls(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryCalls[uid]
}

// MaxInFlight returns the highest number of simultaneously open
// requests observed.
func (m *MockEntrez) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockEntrez) LastQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

func (m *MockEntrez) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var endpoint, subject string
	switch {
	case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
		endpoint, subject = "esearch", q.Get("term")
	case strings.HasSuffix(r.URL.Path, "/esummary.fcgi"):
		endpoint, subject = "esummary", q.Get("id")
	default:
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	m.requestCount++
	m.lastQuery = q
	if endpoint == "esearch" {
		m.searchCalls[subject]++
	} else {
		m.summaryCalls[subject]++
	}
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay

	// Pop the next scripted failure, if any
	key := endpoint + ":" + subject
	var failStatus int
	var failing bool
	if pending := m.failures[key]; len(pending) > 0 {
		failStatus, failing = pending[0], true
		m.failures[key] = pending[1:]
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json")

	if failing {
		if failStatus == StatusBodyRateLimit {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"error":"API rate limit exceeded","count":""}`)
			return
		}
		w.WriteHeader(failStatus)
		fmt.Fprintf(w, `{"error":"scripted failure %d"}`, failStatus)
		return
	}

	switch endpoint {
	case "esearch":
		m.writeSearch(w, subject)
	case "esummary":
		m.writeSummary(w, subject)
	}
}

func (m *MockEntrez) writeSearch(w http.ResponseWriter, term string) {
	m.mu.Lock()
	uids := m.searchResults[term]
	m.mu.Unlock()

	if uids == nil {
		uids = []string{}
	}

	payload := map[string]any{
		"esearchresult": map[string]any{
			"count":  fmt.Sprintf("%d", len(uids)),
			"idlist": uids,
		},
	}
	json.NewEncoder(w).Encode(payload)
}

func (m *MockEntrez) writeSummary(w http.ResponseWriter, uid string) {
	m.mu.Lock()
	fields, ok := m.records[uid]
	m.mu.Unlock()

	result := map[string]any{"uids": []string{uid}}
	if ok {
		doc := map[string]any{"uid": uid}
		for k, v := range fields {
			doc[k] = v
		}
		result[uid] = doc
	}

	json.NewEncoder(w).Encode(map[string]any{"result": result})
}
