package entrez

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of Entrez call failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (malformed request,
	// rejected credentials). Never retried.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents HTTP 429 or an in-body
	// "API rate limit exceeded" response.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrUnexpectedPayload is returned when an Entrez response decodes but
	// does not have the expected shape.
	ErrUnexpectedPayload = errors.New("unexpected entrez payload")
)

// EntrezError represents an Entrez call failure with its classification.
type EntrezError struct {
	StatusCode int
	ErrorClass ErrorClass
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *EntrezError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entrez %s error on %s (status %d): %s: %v",
			e.ErrorClass, e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("entrez %s error on %s (status %d): %s",
		e.ErrorClass, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *EntrezError) Unwrap() error {
	return e.Err
}

// Classify extracts the error class from any error returned by the
// client. Errors without an EntrezError in their chain are treated as
// network failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var entrezErr *EntrezError
	if errors.As(err, &entrezErr) {
		return entrezErr.ErrorClass
	}
	return ErrorClassNetwork
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors should NOT be retried
		return false
	case ErrorClassServer:
		return true
	case ErrorClassRateLimit:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}
