package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers"
)

// Analyzer is the pipeline contract the handler depends on.
type Analyzer interface {
	Analyze(ctx context.Context, clientID string, req *models.AnalysisRequest) (*models.AnalysisResult, error)
}

// AnalyzeHandler serves the analysis endpoint.
type AnalyzeHandler struct {
	analyzer Analyzer
	logger   arbor.ILogger
}

// NewAnalyzeHandler creates the analysis endpoint handler.
func NewAnalyzeHandler(analyzer Analyzer, logger arbor.ILogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// AnalyzeRequestHandler handles POST /api/analyze.
func (h *AnalyzeHandler) AnalyzeRequestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), ClientID(r), &req)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// writeFailure maps pipeline failures onto HTTP status codes.
func (h *AnalyzeHandler) writeFailure(w http.ResponseWriter, err error) {
	var denied *models.AdmissionDeniedError
	if errors.As(err, &denied) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(denied.RetryAfter.Seconds()))))
		WriteError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	var resolution *models.ResolutionError
	if errors.As(err, &resolution) {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var providerErr *providers.Error
	if errors.As(err, &providerErr) && providerErr.Kind == providers.KindNotFound {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var unavailable *models.CategoryUnavailableError
	if errors.As(err, &unavailable) {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	var timeout *models.TimeoutError
	if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, http.StatusGatewayTimeout, err.Error())
		return
	}

	h.logger.Error().Err(err).Msg("Analysis request failed")
	WriteError(w, http.StatusInternalServerError, "internal error")
}
