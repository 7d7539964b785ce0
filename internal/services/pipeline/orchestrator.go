package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
)

// Orchestrator runs the full analysis pipeline for one request:
// admission, ticker resolution, the parallel gather, and composition.
type Orchestrator struct {
	limiter        interfaces.RateLimiter
	resolver       *Resolver
	coordinator    *Coordinator
	composer       *Composer
	requestTimeout time.Duration
	logger         arbor.ILogger
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	limiter interfaces.RateLimiter,
	resolver *Resolver,
	coordinator *Coordinator,
	composer *Composer,
	requestTimeout time.Duration,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		limiter:        limiter,
		resolver:       resolver,
		coordinator:    coordinator,
		composer:       composer,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// Analyze answers one analysis request on behalf of clientID. The
// request is validated, admitted against the client's rate limit,
// resolved to a ticker, gathered, and composed, all under one
// deadline.
func (o *Orchestrator) Analyze(ctx context.Context, clientID string, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	decision := o.limiter.Admit(clientID)
	if !decision.Allowed {
		return nil, &models.AdmissionDeniedError{ClientID: clientID, RetryAfter: decision.RetryAfter}
	}

	requestID := common.NewRequestID()
	started := time.Now()

	log := o.logger.WithCorrelationId(requestID)
	log.Info().
		Str("client_id", clientID).
		Str("query_type", string(req.QueryType)).
		Msg("Analysis request started")

	reqCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	ticker, err := o.resolver.Resolve(reqCtx, req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, &models.TimeoutError{Stage: "resolution"}
		}
		log.Warn().Err(err).Msg("Ticker resolution failed")
		return nil, err
	}

	bundle, err := o.coordinator.Gather(reqCtx, ticker.Symbol, req.LookbackDays)
	if err != nil {
		log.Warn().Str("symbol", ticker.Symbol).Err(err).Msg("Data gather failed")
		return nil, err
	}

	// An expired request never produces a partial result, even when the
	// gather managed to return one.
	if reqCtx.Err() == context.DeadlineExceeded {
		return nil, &models.TimeoutError{Stage: "synthesis"}
	}

	result := o.composer.Compose(reqCtx, requestID, ticker, bundle)

	log.Info().
		Str("symbol", ticker.Symbol).
		Dur("elapsed", time.Since(started)).
		Msg("Analysis request complete")

	return result, nil
}

// validateRequest normalizes and checks the request shape.
func validateRequest(req *models.AnalysisRequest) error {
	if req.QueryType == "" {
		if req.Symbol != "" {
			req.QueryType = models.QueryTypeStructured
		} else {
			req.QueryType = models.QueryTypeNaturalLanguage
		}
	}

	switch req.QueryType {
	case models.QueryTypeNaturalLanguage:
		if strings.TrimSpace(req.Query) == "" {
			return &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: req.Query}
		}
	case models.QueryTypeStructured:
		if strings.TrimSpace(req.Symbol) == "" {
			return &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: req.Query}
		}
	default:
		return &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: req.Query}
	}

	for _, days := range req.LookbackDays {
		if days < 1 || days > 365 {
			return &models.ResolutionError{Kind: models.ResolutionUnresolvable, Query: req.Query}
		}
	}

	return nil
}
