// Package twelvedata is the client for the Twelve Data API. It serves
// quotes and daily time series. Twelve Data reports numeric fields as
// strings and signals errors inside HTTP 200 bodies, so both cases are
// normalized here.
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers"
)

const (
	// Name identifies this provider in failure records and cache keys.
	Name = "twelvedata"

	// DefaultBaseURL is the base URL for the Twelve Data API.
	DefaultBaseURL = "https://api.twelvedata.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per minute).
	DefaultRateLimit = 8
)

// Client is a Twelve Data API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit in requests per minute.
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
	}
}

// NewClient creates a new Twelve Data API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(DefaultRateLimit)/60.0), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return Name
}

// get performs a GET request and surfaces in-body API errors. Twelve
// Data answers bad symbols and exhausted quotas with HTTP 200 plus a
// {"status":"error"} envelope.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return providers.WrapError(Name, providers.KindRateLimited, "local pacing interrupted", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return providers.WrapError(Name, providers.KindMalformed, "failed to create request", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Twelve Data API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.ClassifyTransport(Name, err)
	}
	defer resp.Body.Close()

	if apiErr := providers.ClassifyHTTPStatus(Name, resp); apiErr != nil {
		return apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.WrapError(Name, providers.KindMalformed, "failed to read response", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status == "error" {
		return classifyAPIError(envelope)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return providers.WrapError(Name, providers.KindMalformed, "failed to decode response", err)
	}

	return nil
}

func classifyAPIError(envelope apiEnvelope) *providers.Error {
	switch envelope.Code {
	case 401, 403:
		return providers.NewError(Name, providers.KindUnauthorized, envelope.Message)
	case 404:
		return providers.NewError(Name, providers.KindNotFound, envelope.Message)
	case 429:
		return providers.NewError(Name, providers.KindRateLimited, envelope.Message)
	default:
		return providers.NewError(Name, providers.KindMalformed, envelope.Message)
	}
}

// GetQuote retrieves the current quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var result quoteResponse
	if err := c.get(ctx, "/quote", params, &result); err != nil {
		return nil, err
	}

	current := parseFloat(result.Close)
	previous := parseFloat(result.PreviousClose)
	if current == 0 && previous == 0 {
		return nil, providers.NewError(Name, providers.KindNotFound, "no quote data for "+symbol)
	}

	quote := &models.QuoteSnapshot{
		Symbol:        symbol,
		CurrentPrice:  current,
		PreviousClose: previous,
		Change:        parseFloat(result.Change),
		ChangePercent: parseFloat(result.PercentChange),
		Open:          parseFloat(result.Open),
		High:          parseFloat(result.High),
		Low:           parseFloat(result.Low),
		Volume:        parseInt(result.Volume),
		Timestamp:     time.Unix(result.Timestamp, 0).UTC(),
	}
	providers.ReconcileChange(quote)
	return quote, nil
}

// GetDailySeries retrieves the trailing daily bars for a symbol and
// summarizes the window of `days` calendar days into a change record.
func (c *Client) GetDailySeries(ctx context.Context, symbol string, days int) (*models.PriceChangeRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1day")
	// Extra bars cover weekends and holidays inside the window.
	params.Set("outputsize", strconv.Itoa(days+10))

	var result timeSeriesResponse
	if err := c.get(ctx, "/time_series", params, &result); err != nil {
		return nil, err
	}

	if len(result.Values) == 0 {
		return nil, providers.NewError(Name, providers.KindNotFound, "no historical data for "+symbol)
	}

	candles := make([]providers.Candle, 0, len(result.Values))
	for _, bar := range result.Values {
		date, err := time.Parse("2006-01-02", bar.Datetime)
		if err != nil {
			continue
		}
		candles = append(candles, providers.Candle{
			Date:  date,
			Open:  parseFloat(bar.Open),
			High:  parseFloat(bar.High),
			Low:   parseFloat(bar.Low),
			Close: parseFloat(bar.Close),
		})
	}

	return providers.BuildChangeRecord(Name, days, candles)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
