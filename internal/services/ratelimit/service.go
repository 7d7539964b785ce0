// Package ratelimit provides sliding-window admission control for
// inbound requests. Each identity gets an independent window; denials
// carry the wait until the oldest counted request ages out.
package ratelimit

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/interfaces"
)

// Service tracks request timestamps per identity over a sliding window.
type Service struct {
	mu      sync.Mutex
	history map[string][]time.Time
	limit   int
	window  time.Duration
	logger  arbor.ILogger
	now     func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a limiter admitting up to limit requests per
// identity within each sliding window.
func NewService(limit int, window time.Duration, opts ...ServiceOption) *Service {
	s := &Service{
		history: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Admit records and admits the request unless the identity has already
// used its window allowance. Denied requests are not recorded, so a
// client hammering a closed window does not push its recovery further
// out.
func (s *Service) Admit(id string) interfaces.Decision {
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.history[id]

	// Drop timestamps that have aged out of the window.
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= s.limit {
		retryAfter := live[0].Add(s.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		s.history[id] = live

		if s.logger != nil {
			s.logger.Warn().
				Str("client_id", id).
				Int("limit", s.limit).
				Msg("Request rejected by rate limiter")
		}

		return interfaces.Decision{Allowed: false, RetryAfter: retryAfter, Remaining: 0}
	}

	live = append(live, now)
	s.history[id] = live

	return interfaces.Decision{Allowed: true, Remaining: s.limit - len(live)}
}

// Prune drops identities with no activity inside the current window.
// Intended for a periodic housekeeping call.
func (s *Service) Prune() int {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, stamps := range s.history {
		idle := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(s.history, id)
			removed++
		}
	}
	return removed
}

var _ interfaces.RateLimiter = (*Service)(nil)
