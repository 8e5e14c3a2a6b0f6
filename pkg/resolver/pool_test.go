package resolver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/seqtools/genbank-resolver/internal/testutil"
	"github.com/seqtools/genbank-resolver/pkg/entrez"
)

func TestResolveAll_EndToEnd(t *testing.T) {
	mock := testutil.NewMockEntrez()
	defer mock.Close()

	mock.SetSearchResult("WA-PHL-007327", "R1")
	mock.SetRecord("R1", "PP478410.1",
		"Severe acute respiratory syndrome coronavirus 2 isolate SARS-CoV-2/human/USA/WA-PHL-007327/2024, complete genome")
	mock.SetSearchResult("USA/WA-S11375/2021", "R2")
	mock.SetRecord("R2", "OK147325.1",
		"Severe acute respiratory syndrome coronavirus 2 isolate SARS-CoV-2/human/USA/WA-S11375/2021, complete genome")

	pool := NewPool(newTestResolver(t, mock, nil), 5)

	outcomes := pool.ResolveAll(context.Background(), []string{"WA-PHL-007327", "USA/WA-S11375/2021"})

	got := Aggregate(outcomes)
	want := map[string]string{
		"WA-PHL-007327":      "PP478410.1",
		"USA/WA-S11375/2021": "OK147325.1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAll_OneOutcomePerTermIncludingDuplicates(t *testing.T) {
	mock := testutil.NewMockEntrez()
	defer mock.Close()

	mock.SetSearchResult("dup", "D1")
	mock.SetRecord("D1", "MN908947.3", "isolate SARS-CoV-2/human/USA/dup/2020 title /dup/ match")

	pool := NewPool(newTestResolver(t, mock, nil), 3)

	terms := []string{"dup", "dup", "dup"}
	outcomes := pool.ResolveAll(context.Background(), terms)

	if len(outcomes) != len(terms) {
		t.Fatalf("len(outcomes) = %d, want %d (cardinality preserved pre-aggregation)", len(outcomes), len(terms))
	}
	for i, o := range outcomes {
		if o.Term != "dup" {
			t.Errorf("outcomes[%d].Term = %q, want dup", i, o.Term)
		}
	}
	// Each duplicate got its own independent search call
	if calls := mock.SearchCalls("dup"); calls != 3 {
		t.Errorf("Search calls = %d, want 3 (one per duplicate)", calls)
	}
}

func TestResolveAll_FailureIsolation(t *testing.T) {
	mock := testutil.NewMockEntrez()
	defer mock.Close()

	// Sibling 1 resolves, sibling 2 exhausts rate limit retries,
	// sibling 3 has no hits.
	mock.SetSearchResult("healthy", "H1")
	mock.SetRecord("H1", "PP478410.1", "isolate /healthy/ genome")
	mock.FailSearch("limited", 429, 429, 429)

	pool := NewPool(newTestResolver(t, mock, func(c *entrez.Config) { c.MaxRetries = 3 }), 3)

	outcomes := pool.ResolveAll(context.Background(), []string{"healthy", "limited", "absent"})

	byTerm := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		byTerm[o.Term] = o
	}

	if got := byTerm["healthy"]; got.Status != StatusResolved || got.Accession != "PP478410.1" {
		t.Errorf("healthy = %+v, want resolved PP478410.1", got)
	}
	if got := byTerm["limited"]; got.Status != StatusFailed || got.Err.Kind != KindRateLimit {
		t.Errorf("limited = %+v, want failed rate_limit_exceeded", got)
	}
	if got := byTerm["absent"]; got.Status != StatusNotFound {
		t.Errorf("absent = %+v, want not_found", got)
	}
}

func TestResolveAll_ConcurrencyBound(t *testing.T) {
	mock := testutil.NewMockEntrez()
	defer mock.Close()

	const workers = 3
	const terms = 12

	var batch []string
	for i := 0; i < terms; i++ {
		term := fmt.Sprintf("strain-%d", i)
		uid := fmt.Sprintf("U%d", i)
		mock.SetSearchResult(term, uid)
		mock.SetRecord(uid, "OK147325.1", fmt.Sprintf("isolate /strain-%d/ genome", i))
		batch = append(batch, term)
	}
	mock.SetDelay(20 * time.Millisecond)

	pool := NewPool(newTestResolver(t, mock, func(c *entrez.Config) {
		c.MaxInFlight = workers
	}), workers)

	outcomes := pool.ResolveAll(context.Background(), batch)

	if len(outcomes) != terms {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), terms)
	}
	if peak := mock.MaxInFlight(); peak > workers {
		t.Errorf("Peak in-flight calls = %d, must never exceed %d workers", peak, workers)
	}
}

func TestResolveAll_OrderIndependence(t *testing.T) {
	mock := testutil.NewMockEntrez()
	defer mock.Close()

	mock.SetSearchResult("a", "A1")
	mock.SetRecord("A1", "PP111111.1", "isolate /a/ genome")
	mock.SetSearchResult("b", "B1")
	mock.SetRecord("B1", "PP222222.1", "isolate /b/ genome")
	mock.SetSearchResult("c", "C1")
	mock.SetRecord("C1", "PP333333.1", "isolate /c/ genome")

	pool := NewPool(newTestResolver(t, mock, nil), 2)

	forward := Aggregate(pool.ResolveAll(context.Background(), []string{"a", "b", "c"}))
	reversed := Aggregate(pool.ResolveAll(context.Background(), []string{"c", "b", "a"}))

	if diff := cmp.Diff(forward, reversed); diff != "" {
		t.Errorf("Permuted input changed mapping contents (-forward +reversed):\n%s", diff)
	}
}

func TestResolveAll_CancelledContextStillTerminates(t *testing.T) {
	mock := testutil.NewMockEntrez()
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(newTestResolver(t, mock, nil), 2)

	terms := []string{"x", "y", "z"}
	outcomes := pool.ResolveAll(ctx, terms)

	if len(outcomes) != len(terms) {
		t.Fatalf("len(outcomes) = %d, want %d (every term needs a terminal outcome)", len(outcomes), len(terms))
	}
	for i, o := range outcomes {
		if o.Status != StatusFailed {
			t.Errorf("outcomes[%d].Status = %q, want failed after cancellation", i, o.Status)
		}
	}
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	pool := NewPool(nil, 0)
	if pool.workers != 1 {
		t.Errorf("workers = %d, want clamped to 1", pool.workers)
	}
}

func TestCountByStatus(t *testing.T) {
	outcomes := []Outcome{
		resolved("a", "X1.1"),
		resolved("b", "X2.1"),
		notFound("c"),
		failed("d", StepSearch, KindNetwork, nil),
	}

	counts := CountByStatus(outcomes)

	if counts[StatusResolved] != 2 || counts[StatusNotFound] != 1 || counts[StatusFailed] != 1 {
		t.Errorf("CountByStatus() = %v, want 2/1/1", counts)
	}
}
