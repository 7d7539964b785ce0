// Package providers contains the clients for external market data
// sources and the shared failure taxonomy they normalize into. Each
// client owns exactly one provider's wire format; nothing outside this
// package interprets provider-specific error bodies.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies a provider failure for the fallback loop.
type ErrorKind string

const (
	// KindUnauthorized means the credentials were rejected. Provider-level,
	// not request-level: the next candidate is still worth trying.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindRateLimited means the provider's quota is exhausted.
	KindRateLimited ErrorKind = "rate_limited"
	// KindNotFound means the symbol does not exist at this provider.
	// Short-circuits the fallback chain.
	KindNotFound ErrorKind = "not_found"
	// KindTimeout covers deadlines and transport failures.
	KindTimeout ErrorKind = "timeout"
	// KindMalformed means the response could not be parsed or had an
	// unexpected status.
	KindMalformed ErrorKind = "malformed"
)

// Error is the typed failure every client translates its provider's
// errors into.
type Error struct {
	Provider   string
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration // only set for KindRateLimited
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds a typed provider failure.
func NewError(provider string, kind ErrorKind, message string) *Error {
	return &Error{Provider: provider, Kind: kind, Message: message}
}

// WrapError builds a typed provider failure preserving the cause.
func WrapError(provider string, kind ErrorKind, message string, cause error) *Error {
	return &Error{Provider: provider, Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the failure kind from an error chain. Unknown errors
// report KindMalformed so the fallback loop still continues past them.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindMalformed
}

// ClassifyHTTPStatus maps an HTTP response status onto the taxonomy.
// Returns nil for 2xx.
func ClassifyHTTPStatus(provider string, resp *http.Response) *Error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(provider, KindUnauthorized, "credentials rejected")
	case http.StatusNotFound:
		return NewError(provider, KindNotFound, "symbol not found")
	case http.StatusTooManyRequests:
		e := NewError(provider, KindRateLimited, "provider quota exhausted")
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
				e.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return e
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return NewError(provider, KindTimeout, fmt.Sprintf("status %d", resp.StatusCode))
	default:
		return NewError(provider, KindMalformed, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

// ClassifyTransport maps a transport-level error onto the taxonomy.
// Network unreachability shares KindTimeout with deadline expiry: both
// mean "this provider did not answer in time".
func ClassifyTransport(provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapError(provider, KindTimeout, "request deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapError(provider, KindTimeout, "network timeout", err)
	}
	return WrapError(provider, KindTimeout, "transport failure", err)
}
