package resolver

import (
	"errors"
	"fmt"

	"github.com/seqtools/genbank-resolver/pkg/entrez"
)

// Status is the terminal state of one term's resolution.
type Status string

const (
	// StatusResolved means an accession was found for the term.
	StatusResolved Status = "resolved"

	// StatusNotFound means the search matched no usable record.
	StatusNotFound Status = "not_found"

	// StatusFailed means a call step failed after its retry budget.
	StatusFailed Status = "failed"
)

// ErrorKind classifies why a resolution failed.
type ErrorKind string

const (
	// KindRateLimit: the rate limit persisted through every retry.
	KindRateLimit ErrorKind = "rate_limit_exceeded"

	// KindNetwork: transport failure, timeout, or server error that
	// outlived the retry budget.
	KindNetwork ErrorKind = "network_error"

	// KindFatal: the request was rejected outright (malformed, bad
	// credentials); never retried.
	KindFatal ErrorKind = "fatal_request_error"

	// KindParse: Entrez responded but the payload shape was unexpected.
	KindParse ErrorKind = "parse_error"
)

// Step names the call step a failure occurred in.
type Step string

const (
	// StepSearch is the esearch call keyed by term.
	StepSearch Step = "search"

	// StepFetch is the esummary call keyed by record UID.
	StepFetch Step = "fetch"
)

// ResolveError carries the step and kind of a failed resolution.
type ResolveError struct {
	Step Step
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failed (%s)", e.Step, e.Kind)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal result of resolving one term.
type Outcome struct {
	// Term is the search term this outcome belongs to.
	Term string

	// Status is the terminal state.
	Status Status

	// Accession is set when Status is StatusResolved.
	Accession string

	// Err is set when Status is StatusFailed.
	Err *ResolveError
}

func resolved(term, accession string) Outcome {
	return Outcome{Term: term, Status: StatusResolved, Accession: accession}
}

func notFound(term string) Outcome {
	return Outcome{Term: term, Status: StatusNotFound}
}

func failed(term string, step Step, kind ErrorKind, err error) Outcome {
	return Outcome{
		Term:   term,
		Status: StatusFailed,
		Err:    &ResolveError{Step: step, Kind: kind, Err: err},
	}
}

// kindOf maps a client error to the failure kind for an outcome.
func kindOf(err error) ErrorKind {
	if errors.Is(err, entrez.ErrUnexpectedPayload) {
		return KindParse
	}
	switch entrez.Classify(err) {
	case entrez.ErrorClassRateLimit:
		return KindRateLimit
	case entrez.ErrorClassClient:
		return KindFatal
	default:
		// server errors and transport failures share a kind once the
		// retry budget is spent
		return KindNetwork
	}
}
