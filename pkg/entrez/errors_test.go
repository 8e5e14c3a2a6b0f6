package entrez

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEntrezError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *EntrezError
		contains []string
	}{
		{
			name: "without wrapped error",
			err: &EntrezError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Endpoint:   "esearch",
				Message:    "429 Too Many Requests",
			},
			contains: []string{"rate_limit", "esearch", "429"},
		},
		{
			name: "with wrapped error",
			err: &EntrezError{
				ErrorClass: ErrorClassNetwork,
				Endpoint:   "esummary",
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			contains: []string{"network", "esummary", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, expected to contain %q", msg, want)
				}
			}
		})
	}
}

func TestEntrezError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &EntrezError{ErrorClass: ErrorClassServer, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "direct entrez error",
			err:  &EntrezError{ErrorClass: ErrorClassRateLimit},
			want: ErrorClassRateLimit,
		},
		{
			name: "wrapped entrez error",
			err:  fmt.Errorf("wrap: %w", &EntrezError{ErrorClass: ErrorClassClient}),
			want: ErrorClassClient,
		},
		{
			name: "exhaustion wrapping entrez error",
			err: fmt.Errorf("%w after 5 attempts: %w", ErrRetryExhausted,
				&EntrezError{ErrorClass: ErrorClassRateLimit}),
			want: ErrorClassRateLimit,
		},
		{
			name: "unclassified error defaults to network",
			err:  errors.New("something odd"),
			want: ErrorClassNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		errorClass ErrorClass
		want       bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassRateLimit, true},
		{ErrorClassNetwork, true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorClass), func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.want {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.want)
			}
		})
	}
}
