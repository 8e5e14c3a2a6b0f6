// Package resolver implements batch resolution of specimen search
// terms to GenBank accession numbers: a per-term search/fetch resolver,
// a bounded worker pool that fans a batch out over it, and an
// aggregator that folds the outcomes into the final mapping.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seqtools/genbank-resolver/pkg/entrez"
	"github.com/seqtools/genbank-resolver/pkg/logging"
)

// maxCandidates caps how many search hits are examined per term.
const maxCandidates = 10

// accessionPattern matches versioned GenBank accessions:
// A12345. or AB123456. or AB12345678.
var accessionPattern = regexp.MustCompile(`^[A-Za-z]\d{5}\.|^[A-Za-z]{2}\d{6}\.|^[A-Za-z]{2}\d{8}\.`)

// Resolver resolves single terms against Entrez.
type Resolver struct {
	client *entrez.Client
	logger zerolog.Logger
}

// New creates a resolver backed by the given Entrez client.
func New(client *entrez.Client) *Resolver {
	return &Resolver{
		client: client,
		logger: logging.NewLogger("resolver"),
	}
}

// Resolve performs the two-step lookup for one term: esearch for
// candidate UIDs, then esummary per candidate until a record passes
// validation. Always returns a terminal outcome, never panics or leaks
// transport errors.
func (r *Resolver) Resolve(ctx context.Context, term string) Outcome {
	uids, err := r.client.Search(ctx, term)
	if err != nil {
		r.logger.Warn().
			Str("term", term).
			Str("kind", string(kindOf(err))).
			Err(err).
			Msg("Search step failed")
		return failed(term, StepSearch, kindOf(err), err)
	}

	if len(uids) == 0 {
		r.logger.Debug().Str("term", term).Msg("No search hits")
		return notFound(term)
	}

	if len(uids) > maxCandidates {
		uids = uids[:maxCandidates]
	}

	// Strain names appear slash-delimited in record titles; a bare name
	// is wrapped so "S11375" cannot match "S113750".
	titleTerm := term
	if !strings.Contains(term, "/") {
		titleTerm = "/" + term + "/"
	}

	for _, uid := range uids {
		rec, err := r.client.Summary(ctx, uid)
		if err != nil {
			r.logger.Warn().
				Str("term", term).
				Str("uid", uid).
				Str("kind", string(kindOf(err))).
				Err(err).
				Msg("Fetch step failed")
			return failed(term, StepFetch, kindOf(err), err)
		}

		if rec.AccessionVersion == "" {
			return failed(term, StepFetch, KindParse, entrez.ErrUnexpectedPayload)
		}

		if accessionPattern.MatchString(rec.AccessionVersion) && strings.Contains(rec.Title, titleTerm) {
			r.logger.Debug().
				Str("term", term).
				Str("uid", uid).
				Str("accession", rec.AccessionVersion).
				Msg("Term resolved")
			return resolved(term, rec.AccessionVersion)
		}

		r.logger.Debug().
			Str("term", term).
			Str("uid", uid).
			Str("accession", rec.AccessionVersion).
			Msg("Candidate rejected")
	}

	// Hits existed but none passed validation
	return notFound(term)
}
