package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers"
	"github.com/ternarybob/peritus/internal/services/cache"
	"github.com/ternarybob/peritus/internal/services/ratelimit"
)

func testCache() *cache.Service {
	return cache.NewService(cache.TTLSet{
		Quote:      5 * time.Minute,
		News:       30 * time.Minute,
		Historical: time.Hour,
		Profile:    24 * time.Hour,
	})
}

func quoteAdapter(name string, calls *int, result *models.QuoteSnapshot, err error) Adapter[*models.QuoteSnapshot] {
	return Adapter[*models.QuoteSnapshot]{
		Name: name,
		Fetch: func(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
			*calls++
			return result, err
		},
	}
}

func TestStageFirstProviderWins(t *testing.T) {
	var primaryCalls, fallbackCalls int
	stage := NewStage(models.CategoryQuote, testCache(), nil, common.GetLogger(),
		quoteAdapter("primary", &primaryCalls, &models.QuoteSnapshot{Symbol: "AAPL", CurrentPrice: 189.5}, nil),
		quoteAdapter("fallback", &fallbackCalls, nil, providers.NewError("fallback", providers.KindTimeout, "down")),
	)

	quote, source, err := stage.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "primary", source)
	assert.Equal(t, 189.5, quote.CurrentPrice)
	assert.Equal(t, 1, primaryCalls)
	assert.Equal(t, 0, fallbackCalls)
}

func TestStageFallsBackInOrder(t *testing.T) {
	var primaryCalls, fallbackCalls int
	stage := NewStage(models.CategoryQuote, testCache(), nil, common.GetLogger(),
		quoteAdapter("primary", &primaryCalls, nil, providers.NewError("primary", providers.KindRateLimited, "quota")),
		quoteAdapter("fallback", &fallbackCalls, &models.QuoteSnapshot{Symbol: "AAPL", CurrentPrice: 189.5}, nil),
	)

	_, source, err := stage.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "fallback", source)
	assert.Equal(t, 1, primaryCalls)
	assert.Equal(t, 1, fallbackCalls)
}

func TestStageNotFoundShortCircuits(t *testing.T) {
	var primaryCalls, fallbackCalls int
	stage := NewStage(models.CategoryQuote, testCache(), nil, common.GetLogger(),
		quoteAdapter("primary", &primaryCalls, nil, providers.NewError("primary", providers.KindNotFound, "no such symbol")),
		quoteAdapter("fallback", &fallbackCalls, &models.QuoteSnapshot{Symbol: "ZZZZZ"}, nil),
	)

	_, _, err := stage.Fetch(context.Background(), "ZZZZZ")
	require.Error(t, err)

	var unavailable *models.CategoryUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, unavailable.Failures, 1)
	assert.Equal(t, "primary", unavailable.Failures[0].Provider)

	// The typed not-found cause stays reachable through the wrapper.
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, fallbackCalls)
}

func TestStageAllProvidersExhausted(t *testing.T) {
	var aCalls, bCalls int
	stage := NewStage(models.CategoryQuote, testCache(), nil, common.GetLogger(),
		quoteAdapter("alpha", &aCalls, nil, providers.NewError("alpha", providers.KindUnauthorized, "bad key")),
		quoteAdapter("beta", &bCalls, nil, providers.NewError("beta", providers.KindTimeout, "deadline")),
	)

	_, _, err := stage.Fetch(context.Background(), "AAPL")
	require.Error(t, err)

	var unavailable *models.CategoryUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, models.CategoryQuote, unavailable.Category)
	require.Len(t, unavailable.Failures, 2)
	assert.Equal(t, "beta", unavailable.Failures[0].Provider)
	assert.Equal(t, "alpha", unavailable.Failures[1].Provider)
}

func TestStageCacheHitSkipsProviders(t *testing.T) {
	var calls int
	store := testCache()
	stage := NewStage(models.CategoryQuote, store, nil, common.GetLogger(),
		quoteAdapter("primary", &calls, &models.QuoteSnapshot{Symbol: "AAPL", CurrentPrice: 189.5}, nil),
	)

	_, source, err := stage.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "primary", source)

	quote, source, err := stage.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, CacheSource, source)
	assert.Equal(t, 189.5, quote.CurrentPrice)
	assert.Equal(t, 1, calls)
}

func TestStageNoCacheWriteOnCanceledContext(t *testing.T) {
	store := testCache()

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	stage := NewStage(models.CategoryQuote, store, nil, common.GetLogger(),
		Adapter[*models.QuoteSnapshot]{
			Name: "primary",
			Fetch: func(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
				calls++
				cancel() // deadline elapses mid-fetch
				return &models.QuoteSnapshot{Symbol: "AAPL"}, nil
			},
		},
	)

	_, _, err := stage.Fetch(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestStageCanceledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	stage := NewStage(models.CategoryQuote, testCache(), nil, common.GetLogger(),
		quoteAdapter("primary", &calls, &models.QuoteSnapshot{}, nil),
	)

	_, _, err := stage.Fetch(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestStageSkipsQuotaExhaustedProvider(t *testing.T) {
	limits := ratelimit.NewGroup()
	limits.Set("primary", 1, time.Minute)

	var primaryCalls, fallbackCalls int
	stage := NewStage(models.CategoryQuote, testCache(), limits, common.GetLogger(),
		quoteAdapter("primary", &primaryCalls, &models.QuoteSnapshot{Symbol: "AAPL", CurrentPrice: 189.5}, nil),
		quoteAdapter("fallback", &fallbackCalls, &models.QuoteSnapshot{Symbol: "AAPL", CurrentPrice: 189.6}, nil),
	)

	_, source, err := stage.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "primary", source)

	// The primary's single slot is spent; the next distinct symbol must
	// come from the fallback without the primary being called again.
	quote, source, err := stage.Fetch(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "fallback", source)
	assert.Equal(t, 189.6, quote.CurrentPrice)
	assert.Equal(t, 1, primaryCalls)
	assert.Equal(t, 1, fallbackCalls)
}
