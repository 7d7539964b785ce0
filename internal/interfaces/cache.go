package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/peritus/internal/models"
)

// Cache is a category-keyed TTL store. Absence is a normal return, not
// a failure; implementations never surface storage errors to callers.
type Cache interface {
	// Get returns the payload for (category, key) if present and within
	// its TTL. Expired entries behave as misses.
	Get(ctx context.Context, category models.Category, key string) ([]byte, bool)

	// Put stores payload under (category, key) with the category's TTL.
	Put(ctx context.Context, category models.Category, key string, payload []byte)
}

// Decision is the rate limiter's answer to one admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // positive when denied
	Remaining  int           // slots left in the current window
}

// RateLimiter performs sliding-window admission control keyed by an
// identity string (client address or provider name). Safe for
// concurrent use.
type RateLimiter interface {
	Admit(id string) Decision
}
