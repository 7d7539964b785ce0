// Package pipeline orchestrates one analysis request: ticker
// resolution, the parallel data gather with per-category provider
// fallback, and narrative synthesis.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers"
	"github.com/ternarybob/peritus/internal/services/cache"
)

// CacheSource is the source label reported when a stage answers from
// cache rather than a live provider.
const CacheSource = "cache"

// Adapter binds a provider name to one fetch operation for a category.
// Adapters for a category are tried in configuration order.
type Adapter[T any] struct {
	Name  string
	Fetch func(ctx context.Context, symbol string) (T, error)
}

// Stage fetches one data category through an ordered provider chain
// with a cache in front. An optional provider limiter gates each
// adapter by its remaining quota; a nil limiter admits everything.
type Stage[T any] struct {
	category models.Category
	adapters []Adapter[T]
	cache    interfaces.Cache
	limiter  interfaces.RateLimiter
	logger   arbor.ILogger
}

// NewStage creates a fetch stage for a category.
func NewStage[T any](category models.Category, store interfaces.Cache, limiter interfaces.RateLimiter, logger arbor.ILogger, adapters ...Adapter[T]) *Stage[T] {
	return &Stage[T]{
		category: category,
		adapters: adapters,
		cache:    store,
		limiter:  limiter,
		logger:   logger,
	}
}

// Fetch returns the category's data for symbol along with the name of
// the source that served it. A cache hit answers without touching any
// provider. On a miss the adapters run in order; the first success is
// cached and returned. A not-found failure stops the chain immediately
// since a symbol unknown to one provider will not appear at the next.
func (s *Stage[T]) Fetch(ctx context.Context, symbol string, keyParts ...string) (T, string, error) {
	var zero T

	key := cache.Key(s.category, append([]string{symbol}, keyParts...)...)

	if payload, ok := s.cache.Get(ctx, s.category, key); ok {
		var value T
		if err := json.Unmarshal(payload, &value); err == nil {
			s.logger.Debug().
				Str("category", string(s.category)).
				Str("symbol", symbol).
				Msg("Cache hit")
			return value, CacheSource, nil
		}
		// A payload that no longer unmarshals is treated as a miss.
	}

	var failures []models.ProviderFailure
	for _, adapter := range s.adapters {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		if s.limiter != nil {
			if decision := s.limiter.Admit(adapter.Name); !decision.Allowed {
				denied := providers.NewError(adapter.Name, providers.KindRateLimited, "provider quota exhausted")
				denied.RetryAfter = decision.RetryAfter
				s.logger.Warn().
					Str("category", string(s.category)).
					Str("symbol", symbol).
					Str("provider", adapter.Name).
					Msg("Provider quota exhausted, trying next")
				failures = append([]models.ProviderFailure{{Provider: adapter.Name, Reason: denied.Error(), Err: denied}}, failures...)
				continue
			}
		}

		value, err := adapter.Fetch(ctx, symbol)
		if err == nil {
			s.store(ctx, key, value)
			s.logger.Debug().
				Str("category", string(s.category)).
				Str("symbol", symbol).
				Str("provider", adapter.Name).
				Msg("Provider fetch succeeded")
			return value, adapter.Name, nil
		}

		// Not-found goes out in the chain's failure shape too, with
		// the typed cause reachable through Unwrap.
		if providers.KindOf(err) == providers.KindNotFound {
			failures = append([]models.ProviderFailure{{Provider: adapter.Name, Reason: err.Error(), Err: err}}, failures...)
			return zero, "", &models.CategoryUnavailableError{Category: s.category, Failures: failures}
		}

		s.logger.Warn().
			Str("category", string(s.category)).
			Str("symbol", symbol).
			Str("provider", adapter.Name).
			Err(err).
			Msg("Provider fetch failed, trying next")

		// Most recent failure first.
		failures = append([]models.ProviderFailure{{Provider: adapter.Name, Reason: err.Error(), Err: err}}, failures...)
	}

	return zero, "", &models.CategoryUnavailableError{Category: s.category, Failures: failures}
}

// store writes a successful fetch through to the cache. A canceled
// context means the value may be partial or stale, so nothing is
// written.
func (s *Stage[T]) store(ctx context.Context, key string, value interface{}) {
	if ctx.Err() != nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.cache.Put(ctx, s.category, key, payload)
}

// IsNotFound reports whether err is a provider not-found failure.
func IsNotFound(err error) bool {
	return providers.KindOf(err) == providers.KindNotFound
}
