package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers"
)

type stubAnalyzer struct {
	result   *models.AnalysisResult
	err      error
	clientID string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, clientID string, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	s.clientID = clientID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func postAnalyze(t *testing.T, analyzer Analyzer, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewAnalyzeHandler(analyzer, common.GetLogger())

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	handler.AnalyzeRequestHandler(rec, req)
	return rec
}

func TestAnalyzeSuccess(t *testing.T) {
	analyzer := &stubAnalyzer{result: &models.AnalysisResult{
		RequestID:       "req_123",
		Ticker:          "AAPL",
		AnalysisSummary: "Apple closed higher.",
		RecentNews:      []models.NewsItem{},
		KeyInsights:     []string{"up on the day"},
	}}

	rec := postAnalyze(t, analyzer, `{"query":"how is apple doing?","query_type":"natural_language"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.1", analyzer.clientID)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "AAPL", result.Ticker)
}

func TestAnalyzeBadBody(t *testing.T) {
	rec := postAnalyze(t, &stubAnalyzer{}, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	handler := NewAnalyzeHandler(&stubAnalyzer{}, common.GetLogger())
	req := httptest.NewRequest("GET", "/api/analyze", nil)
	rec := httptest.NewRecorder()
	handler.AnalyzeRequestHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyzeRateLimited(t *testing.T) {
	analyzer := &stubAnalyzer{err: &models.AdmissionDeniedError{
		ClientID:   "10.0.0.1",
		RetryAfter: 42 * time.Second,
	}}

	rec := postAnalyze(t, analyzer, `{"query":"how is apple doing?"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
}

func TestAnalyzeUnresolvable(t *testing.T) {
	analyzer := &stubAnalyzer{err: &models.ResolutionError{
		Kind:  models.ResolutionUnresolvable,
		Query: "what is the meaning of life?",
	}}

	rec := postAnalyze(t, analyzer, `{"query":"what is the meaning of life?"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyzeProvidersExhausted(t *testing.T) {
	analyzer := &stubAnalyzer{err: &models.CategoryUnavailableError{
		Category: models.CategoryQuote,
		Failures: []models.ProviderFailure{{Provider: "finnhub", Reason: "quota"}},
	}}

	rec := postAnalyze(t, analyzer, `{"query":"how is apple doing?"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAnalyzeUnknownSymbolInChainFailure(t *testing.T) {
	// A definitive not-found arrives wrapped in the chain failure; it
	// is the caller's mistake, not a provider outage.
	notFound := providers.NewError("finnhub", providers.KindNotFound, "no quote data for ZZZZZ")
	analyzer := &stubAnalyzer{err: &models.CategoryUnavailableError{
		Category: models.CategoryQuote,
		Failures: []models.ProviderFailure{{Provider: "finnhub", Reason: notFound.Error(), Err: notFound}},
	}}

	rec := postAnalyze(t, analyzer, `{"query":"how is ZZZZZ doing?"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyzeTimeout(t *testing.T) {
	analyzer := &stubAnalyzer{err: &models.TimeoutError{Stage: "gather"}}

	rec := postAnalyze(t, analyzer, `{"query":"how is apple doing?"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestAnalyzeUnknownError(t *testing.T) {
	analyzer := &stubAnalyzer{err: assert.AnError}

	rec := postAnalyze(t, analyzer, `{"query":"how is apple doing?"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientIDForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analyze", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientID(req))
}
