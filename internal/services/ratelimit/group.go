package ratelimit

import (
	"sync"
	"time"

	"github.com/ternarybob/peritus/internal/interfaces"
)

// Group routes admission checks to per-identity limiters carrying their
// own ceilings. Used for provider quotas, where each upstream plan has
// a different allowance. Identities without a configured ceiling are
// always admitted.
type Group struct {
	mu       sync.RWMutex
	limiters map[string]*Service
}

// NewGroup creates an empty limiter group.
func NewGroup() *Group {
	return &Group{limiters: make(map[string]*Service)}
}

// Set configures the ceiling for one identity, replacing any previous
// limiter and its recorded history.
func (g *Group) Set(id string, limit int, window time.Duration, opts ...ServiceOption) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters[id] = NewService(limit, window, opts...)
}

// Admit checks the identity against its configured ceiling.
func (g *Group) Admit(id string) interfaces.Decision {
	g.mu.RLock()
	limiter := g.limiters[id]
	g.mu.RUnlock()

	if limiter == nil {
		return interfaces.Decision{Allowed: true}
	}
	return limiter.Admit(id)
}

var _ interfaces.RateLimiter = (*Group)(nil)
