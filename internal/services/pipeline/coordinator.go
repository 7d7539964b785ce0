package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
)

// HistoryFetcher binds a provider name to its windowed history fetch.
type HistoryFetcher struct {
	Name  string
	Fetch func(ctx context.Context, symbol string, days int) (*models.PriceChangeRecord, error)
}

// Coordinator runs the data gather for one resolved ticker: quote,
// news, historical windows, and the company profile, in parallel under
// a shared deadline.
type Coordinator struct {
	quote   *Stage[*models.QuoteSnapshot]
	news    *Stage[[]models.NewsItem]
	profile *Stage[*models.CompanyProfile]
	history []HistoryFetcher

	cache         interfaces.Cache
	limiter       interfaces.RateLimiter
	gatherTimeout time.Duration
	lookbackDays  []int
	logger        arbor.ILogger
}

// NewCoordinator creates a gather coordinator. lookbackDays is the
// default set of historical windows when a request does not name its
// own.
func NewCoordinator(
	quote *Stage[*models.QuoteSnapshot],
	news *Stage[[]models.NewsItem],
	profile *Stage[*models.CompanyProfile],
	history []HistoryFetcher,
	store interfaces.Cache,
	limiter interfaces.RateLimiter,
	gatherTimeout time.Duration,
	lookbackDays []int,
	logger arbor.ILogger,
) *Coordinator {
	return &Coordinator{
		quote:         quote,
		news:          news,
		profile:       profile,
		history:       history,
		cache:         store,
		limiter:       limiter,
		gatherTimeout: gatherTimeout,
		lookbackDays:  lookbackDays,
		logger:        logger,
	}
}

// Gather fetches all categories for symbol. Quote is mandatory: its
// failure fails the gather. News, history, and profile degrade, with
// their errors recorded in the bundle for the caller to report.
func (c *Coordinator) Gather(ctx context.Context, symbol string, lookback []int) (*models.Bundle, error) {
	gatherCtx, cancel := context.WithTimeout(ctx, c.gatherTimeout)
	defer cancel()

	if len(lookback) == 0 {
		lookback = c.lookbackDays
	}

	bundle := &models.Bundle{HistoryErrs: make(map[int]error)}
	var quoteErr error

	var wg sync.WaitGroup
	wg.Add(4)

	common.SafeGo(c.logger, "fetchQuote", func() {
		defer wg.Done()
		bundle.Quote, bundle.QuoteSource, quoteErr = c.quote.Fetch(gatherCtx, symbol)
	})

	common.SafeGo(c.logger, "fetchNews", func() {
		defer wg.Done()
		bundle.News, bundle.NewsSource, bundle.NewsErr = c.news.Fetch(gatherCtx, symbol)
	})

	common.SafeGo(c.logger, "fetchHistory", func() {
		defer wg.Done()
		c.gatherHistory(gatherCtx, symbol, lookback, bundle)
	})

	common.SafeGo(c.logger, "fetchProfile", func() {
		defer wg.Done()
		profile, _, err := c.profile.Fetch(gatherCtx, symbol)
		if err != nil {
			c.logger.Debug().
				Str("symbol", symbol).
				Err(err).
				Msg("Profile fetch failed, continuing without it")
			return
		}
		bundle.Profile = profile
	})

	wg.Wait()

	if quoteErr != nil {
		if gatherCtx.Err() == context.DeadlineExceeded {
			return nil, &models.TimeoutError{Stage: "gather"}
		}
		return nil, quoteErr
	}

	c.logger.Info().
		Str("symbol", symbol).
		Str("quote_source", bundle.QuoteSource).
		Bool("news_available", bundle.NewsAvailable()).
		Int("history_windows", len(bundle.History)).
		Msg("Gather complete")

	return bundle, nil
}

// gatherHistory fetches each lookback window through the provider
// chain. Windows run sequentially: they hit the same providers, and
// most answers come from one daily-series call already paced by the
// client's limiter.
func (c *Coordinator) gatherHistory(ctx context.Context, symbol string, lookback []int, bundle *models.Bundle) {
	for _, days := range lookback {
		stage := c.historyStage(days)

		record, source, err := stage.Fetch(ctx, symbol, fmt.Sprintf("%dd", days))
		if err != nil {
			bundle.HistoryErrs[days] = err
			continue
		}

		bundle.History = append(bundle.History, *record)
		if bundle.HistorySource == "" || source != CacheSource {
			bundle.HistorySource = source
		}
	}
}

// historyStage builds the fetch stage for one lookback window. The
// window length is part of the cache key, so a 7 day and a 30 day
// record never collide.
func (c *Coordinator) historyStage(days int) *Stage[*models.PriceChangeRecord] {
	adapters := make([]Adapter[*models.PriceChangeRecord], 0, len(c.history))
	for _, fetcher := range c.history {
		fetcher := fetcher
		adapters = append(adapters, Adapter[*models.PriceChangeRecord]{
			Name: fetcher.Name,
			Fetch: func(ctx context.Context, symbol string) (*models.PriceChangeRecord, error) {
				return fetcher.Fetch(ctx, symbol, days)
			},
		})
	}
	return NewStage(models.CategoryHistorical, c.cache, c.limiter, c.logger, adapters...)
}
