// Package app wires configuration, storage, provider clients, and the
// analysis pipeline into one container the server runs from.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/handlers"
	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers/alphavantage"
	"github.com/ternarybob/peritus/internal/providers/finnhub"
	"github.com/ternarybob/peritus/internal/providers/marketaux"
	"github.com/ternarybob/peritus/internal/providers/twelvedata"
	"github.com/ternarybob/peritus/internal/services/cache"
	"github.com/ternarybob/peritus/internal/services/llm"
	"github.com/ternarybob/peritus/internal/services/pipeline"
	"github.com/ternarybob/peritus/internal/services/ratelimit"
	badgerstore "github.com/ternarybob/peritus/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	BadgerDB       *badgerstore.BadgerDB
	Cache          *cache.Service
	RateLimiter    *ratelimit.Service
	ProviderLimits *ratelimit.Group
	LLMFactory     *llm.ProviderFactory

	Orchestrator *pipeline.Orchestrator

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	AnalyzeHandler *handlers.AnalyzeHandler

	finnhub      *finnhub.Client
	twelvedata   *twelvedata.Client
	alphavantage *alphavantage.Client
	marketaux    *marketaux.Client
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initClients()
	app.initPipeline()

	app.APIHandler = handlers.NewAPIHandler()
	app.AnalyzeHandler = handlers.NewAnalyzeHandler(app.Orchestrator, logger)

	logger.Info().
		Strs("quote_chain", cfg.Providers.QuoteOrder).
		Strs("news_chain", cfg.Providers.NewsOrder).
		Strs("historical_chain", cfg.Providers.HistoricalOrder).
		Bool("persistent_cache", app.BadgerDB != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the persistent cache tier when configured and
// builds the cache service on top of it.
func (a *App) initStorage() error {
	cacheOpts := []cache.ServiceOption{cache.WithLogger(a.Logger)}

	if a.Config.Storage.Badger.Path != "" {
		db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
		if err != nil {
			return err
		}
		a.BadgerDB = db
		cacheOpts = append(cacheOpts, cache.WithBadger(db.DB()))

		a.Logger.Debug().
			Str("storage", "badger").
			Str("path", a.Config.Storage.Badger.Path).
			Msg("Persistent cache tier initialized")
	}

	a.Cache = cache.NewService(cache.TTLSet{
		Quote:      common.Duration(a.Config.Cache.QuoteTTL, 5*time.Minute),
		News:       common.Duration(a.Config.Cache.NewsTTL, 30*time.Minute),
		Historical: common.Duration(a.Config.Cache.HistoricalTTL, time.Hour),
		Profile:    common.Duration(a.Config.Cache.ProfileTTL, 24*time.Hour),
	}, cacheOpts...)

	return nil
}

// initClients builds one client per configured provider.
func (a *App) initClients() {
	cfg := a.Config.Providers

	finnhubOpts := []finnhub.ClientOption{
		finnhub.WithLogger(a.Logger),
		finnhub.WithRateLimit(cfg.Finnhub.RequestsPerMinute),
	}
	if cfg.Finnhub.BaseURL != "" {
		finnhubOpts = append(finnhubOpts, finnhub.WithBaseURL(cfg.Finnhub.BaseURL))
	}
	a.finnhub = finnhub.NewClient(cfg.Finnhub.APIKey, finnhubOpts...)

	twelvedataOpts := []twelvedata.ClientOption{
		twelvedata.WithLogger(a.Logger),
		twelvedata.WithRateLimit(cfg.TwelveData.RequestsPerMinute),
	}
	if cfg.TwelveData.BaseURL != "" {
		twelvedataOpts = append(twelvedataOpts, twelvedata.WithBaseURL(cfg.TwelveData.BaseURL))
	}
	a.twelvedata = twelvedata.NewClient(cfg.TwelveData.APIKey, twelvedataOpts...)

	alphavantageOpts := []alphavantage.ClientOption{
		alphavantage.WithLogger(a.Logger),
		alphavantage.WithRateLimit(cfg.AlphaVantage.RequestsPerMinute),
	}
	if cfg.AlphaVantage.BaseURL != "" {
		alphavantageOpts = append(alphavantageOpts, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
	}
	a.alphavantage = alphavantage.NewClient(cfg.AlphaVantage.APIKey, alphavantageOpts...)

	marketauxOpts := []marketaux.ClientOption{
		marketaux.WithLogger(a.Logger),
		marketaux.WithRateLimit(cfg.Marketaux.RequestsPerMinute),
	}
	if cfg.Marketaux.BaseURL != "" {
		marketauxOpts = append(marketauxOpts, marketaux.WithBaseURL(cfg.Marketaux.BaseURL))
	}
	a.marketaux = marketaux.NewClient(cfg.Marketaux.APIKey, marketauxOpts...)
}

// providerLimits builds the per-provider quota group from each
// provider's configured per-minute allowance. A fetch stage denied by
// the group records the denial and falls through to the next provider
// instead of waiting.
func (a *App) providerLimits() *ratelimit.Group {
	cfg := a.Config.Providers

	group := ratelimit.NewGroup()
	for name, rpm := range map[string]int{
		finnhub.Name:      cfg.Finnhub.RequestsPerMinute,
		twelvedata.Name:   cfg.TwelveData.RequestsPerMinute,
		alphavantage.Name: cfg.AlphaVantage.RequestsPerMinute,
		marketaux.Name:    cfg.Marketaux.RequestsPerMinute,
	} {
		if rpm > 0 {
			group.Set(name, rpm, time.Minute, ratelimit.WithLogger(a.Logger))
		}
	}
	return group
}

// initPipeline assembles the fetch stages in configured fallback order
// and wires the orchestrator.
func (a *App) initPipeline() {
	cfg := a.Config

	a.ProviderLimits = a.providerLimits()

	quoteStage := pipeline.NewStage(models.CategoryQuote, a.Cache, a.ProviderLimits, a.Logger, a.quoteAdapters()...)
	newsStage := pipeline.NewStage(models.CategoryNews, a.Cache, a.ProviderLimits, a.Logger, a.newsAdapters()...)
	profileStage := pipeline.NewStage(models.CategoryProfile, a.Cache, a.ProviderLimits, a.Logger,
		pipeline.Adapter[*models.CompanyProfile]{Name: finnhub.Name, Fetch: a.finnhub.GetCompanyProfile},
	)

	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	intent := llm.NewIntentService(a.LLMFactory, "", a.Logger)
	narrative := llm.NewNarrativeService(a.LLMFactory, "", a.Logger)

	probe := func(ctx context.Context, symbol string) error {
		_, _, err := quoteStage.Fetch(ctx, symbol)
		return err
	}

	resolver := pipeline.NewResolver(
		intent,
		probe,
		cfg.Pipeline.ConfidenceThreshold,
		common.Duration(cfg.Pipeline.ProbeTimeout, 5*time.Second),
		a.Logger,
	)

	coordinator := pipeline.NewCoordinator(
		quoteStage,
		newsStage,
		profileStage,
		a.historyFetchers(),
		a.Cache,
		a.ProviderLimits,
		common.Duration(cfg.Pipeline.GatherTimeout, 20*time.Second),
		cfg.Pipeline.LookbackDays,
		a.Logger,
	)

	composer := pipeline.NewComposer(narrative, a.Logger)

	a.RateLimiter = ratelimit.NewService(
		cfg.RateLimit.ClientLimit,
		common.Duration(cfg.RateLimit.ClientWindow, time.Minute),
		ratelimit.WithLogger(a.Logger),
	)

	a.Orchestrator = pipeline.NewOrchestrator(
		a.RateLimiter,
		resolver,
		coordinator,
		composer,
		common.Duration(cfg.Pipeline.RequestTimeout, 30*time.Second),
		a.Logger,
	)
}

func (a *App) quoteAdapters() []pipeline.Adapter[*models.QuoteSnapshot] {
	var adapters []pipeline.Adapter[*models.QuoteSnapshot]
	for _, name := range a.Config.Providers.QuoteOrder {
		switch name {
		case finnhub.Name:
			adapters = append(adapters, pipeline.Adapter[*models.QuoteSnapshot]{Name: name, Fetch: a.finnhub.GetQuote})
		case twelvedata.Name:
			adapters = append(adapters, pipeline.Adapter[*models.QuoteSnapshot]{Name: name, Fetch: a.twelvedata.GetQuote})
		default:
			a.Logger.Warn().Str("provider", name).Msg("Unknown provider in quote chain, skipping")
		}
	}
	return adapters
}

func (a *App) newsAdapters() []pipeline.Adapter[[]models.NewsItem] {
	daysBack := a.Config.Pipeline.NewsDaysBack
	limit := a.Config.Pipeline.MaxNewsItems

	var adapters []pipeline.Adapter[[]models.NewsItem]
	for _, name := range a.Config.Providers.NewsOrder {
		switch name {
		case finnhub.Name:
			adapters = append(adapters, pipeline.Adapter[[]models.NewsItem]{
				Name: name,
				Fetch: func(ctx context.Context, symbol string) ([]models.NewsItem, error) {
					return a.finnhub.GetCompanyNews(ctx, symbol, daysBack, limit)
				},
			})
		case marketaux.Name:
			adapters = append(adapters, pipeline.Adapter[[]models.NewsItem]{
				Name: name,
				Fetch: func(ctx context.Context, symbol string) ([]models.NewsItem, error) {
					return a.marketaux.GetNews(ctx, symbol, daysBack, limit)
				},
			})
		default:
			a.Logger.Warn().Str("provider", name).Msg("Unknown provider in news chain, skipping")
		}
	}
	return adapters
}

func (a *App) historyFetchers() []pipeline.HistoryFetcher {
	var fetchers []pipeline.HistoryFetcher
	for _, name := range a.Config.Providers.HistoricalOrder {
		switch name {
		case alphavantage.Name:
			fetchers = append(fetchers, pipeline.HistoryFetcher{Name: name, Fetch: a.alphavantage.GetDailySeries})
		case twelvedata.Name:
			fetchers = append(fetchers, pipeline.HistoryFetcher{Name: name, Fetch: a.twelvedata.GetDailySeries})
		default:
			a.Logger.Warn().Str("provider", name).Msg("Unknown provider in historical chain, skipping")
		}
	}
	return fetchers
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	if a.LLMFactory != nil {
		a.LLMFactory.Close()
	}
	if a.BadgerDB != nil {
		if err := a.BadgerDB.Close(); err != nil {
			return fmt.Errorf("failed to close badger: %w", err)
		}
	}
	return nil
}

var _ handlers.Analyzer = (*pipeline.Orchestrator)(nil)
