package models

import (
	"fmt"
	"strings"
	"time"
)

// AdmissionDeniedError is returned when the client rate limit is exceeded.
// RetryAfter is the time until the oldest request leaves the window.
type AdmissionDeniedError struct {
	ClientID   string
	RetryAfter time.Duration
}

func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for client %s, retry after %s", e.ClientID, e.RetryAfter.Round(time.Millisecond))
}

// ResolutionKind classifies why a query could not be resolved to a ticker.
type ResolutionKind string

const (
	// ResolutionAmbiguous means a candidate was found but confidence was
	// below the configured threshold.
	ResolutionAmbiguous ResolutionKind = "ambiguous"
	// ResolutionUnresolvable means no candidate symbol could be found or
	// the candidate failed existence validation.
	ResolutionUnresolvable ResolutionKind = "unresolvable"
)

// ResolutionError is returned by the ticker resolution stage.
type ResolutionError struct {
	Kind       ResolutionKind
	Query      string
	Candidate  string
	Confidence float64
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case ResolutionAmbiguous:
		return fmt.Sprintf("ambiguous query %q: candidate %s at confidence %.2f", e.Query, e.Candidate, e.Confidence)
	default:
		return fmt.Sprintf("could not resolve a ticker symbol from query %q", e.Query)
	}
}

// ProviderFailure records one adapter's failure inside a fallback chain.
// Err keeps the typed provider error reachable for errors.As matching.
type ProviderFailure struct {
	Provider string
	Reason   string
	Err      error
}

// CategoryUnavailableError is returned when a category's provider chain
// cannot answer: every adapter exhausted, or one answered definitively
// that the symbol does not exist. Failures are ordered most recent
// first.
type CategoryUnavailableError struct {
	Category Category
	Failures []ProviderFailure
}

func (e *CategoryUnavailableError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Provider, f.Reason))
	}
	return fmt.Sprintf("all providers failed for %s [%s]", e.Category, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying provider errors so callers can match a
// failure kind with errors.As.
func (e *CategoryUnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// TimeoutError is returned when the end-to-end deadline elapses at a
// stage boundary. Stage names which part of the pipeline was running.
type TimeoutError struct {
	Stage string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("analysis deadline exceeded during %s", e.Stage)
}
