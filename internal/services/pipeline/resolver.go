package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
)

// ProbeFunc checks that a symbol exists at a market data provider.
// A nil error means the symbol is real; a not-found failure means it
// is not. Any other failure is a provider problem, not a verdict on
// the symbol.
type ProbeFunc func(ctx context.Context, symbol string) error

// Resolver turns an analysis request into a validated ticker.
type Resolver struct {
	extractor    interfaces.IntentExtractor
	probe        ProbeFunc
	threshold    float64
	probeTimeout time.Duration
	logger       arbor.ILogger
}

// NewResolver creates a ticker resolver.
func NewResolver(extractor interfaces.IntentExtractor, probe ProbeFunc, threshold float64, probeTimeout time.Duration, logger arbor.ILogger) *Resolver {
	return &Resolver{
		extractor:    extractor,
		probe:        probe,
		threshold:    threshold,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Resolve validates an explicit symbol or extracts one from free text.
// Explicit symbols skip the confidence check but still get existence
// validation: a caller-supplied typo should fail here, not mid-gather.
func (r *Resolver) Resolve(ctx context.Context, req *models.AnalysisRequest) (*models.Ticker, error) {
	if req.QueryType == models.QueryTypeStructured || req.Symbol != "" {
		return r.resolveExplicit(ctx, req)
	}
	return r.resolveFromText(ctx, req)
}

func (r *Resolver) resolveExplicit(ctx context.Context, req *models.AnalysisRequest) (*models.Ticker, error) {
	symbol := common.NormalizeSymbol(req.Symbol)
	if !common.ValidSymbol(symbol) {
		return nil, &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: req.Symbol}
	}

	if err := r.probeSymbol(ctx, symbol); err != nil {
		return nil, err
	}

	return &models.Ticker{Symbol: symbol, Confidence: 1.0}, nil
}

func (r *Resolver) resolveFromText(ctx context.Context, req *models.AnalysisRequest) (*models.Ticker, error) {
	// A query that already carries a plausible uppercase symbol skips
	// the model round trip when the symbol checks out.
	if candidate := common.ExtractCandidateSymbol(req.Query); candidate != "" {
		if err := r.probeSymbol(ctx, candidate); err == nil {
			r.logger.Debug().
				Str("symbol", candidate).
				Msg("Resolved ticker from explicit symbol in query")
			return &models.Ticker{Symbol: candidate, Confidence: 1.0}, nil
		}
	}

	result, err := r.extractor.ExtractTicker(ctx, req.Query)
	if err != nil {
		if errors.Is(err, interfaces.ErrNoCandidateFound) {
			return nil, &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: req.Query}
		}
		return nil, err
	}

	if result.Confidence < r.threshold {
		return nil, &models.ResolutionError{
			Kind:       models.ResolutionAmbiguous,
			Query:      req.Query,
			Candidate:  result.Symbol,
			Confidence: result.Confidence,
		}
	}

	if err := r.probeSymbol(ctx, result.Symbol); err != nil {
		var resolutionErr *models.ResolutionError
		if errors.As(err, &resolutionErr) {
			resolutionErr.Query = req.Query
			resolutionErr.Candidate = result.Symbol
		}
		return nil, err
	}

	r.logger.Info().
		Str("symbol", result.Symbol).
		Float64("confidence", result.Confidence).
		Msg("Resolved ticker from query")

	return &models.Ticker{
		Symbol:      result.Symbol,
		CompanyName: result.CompanyName,
		Confidence:  result.Confidence,
	}, nil
}

// probeSymbol verifies existence under its own short deadline. Only a
// definitive not-found rejects the symbol; provider outages let the
// request proceed so the gather stage can report them properly.
func (r *Resolver) probeSymbol(ctx context.Context, symbol string) error {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	err := r.probe(probeCtx, symbol)
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: symbol, Candidate: symbol}
	}

	r.logger.Warn().
		Str("symbol", symbol).
		Err(err).
		Msg("Existence probe inconclusive, proceeding")

	return nil
}
