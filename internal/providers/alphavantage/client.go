// Package alphavantage is the client for the Alpha Vantage API. It
// serves daily historical series. Alpha Vantage signals quota
// exhaustion with HTTP 200 and a "Note" or "Information" body, which
// is normalized into the shared failure taxonomy.
package alphavantage

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
	Name = "alphavantage"

	// DefaultBaseURL is the base URL for the Alpha Vantage API.
	DefaultBaseURL = "https://www.alphavantage.co"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per minute).
	DefaultRateLimit = 5
)

// Client is an Alpha Vantage API client.
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

// NewClient creates a new Alpha Vantage API client.
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

// get performs a GET request and returns the raw body. Alpha Vantage
// multiplexes data, throttle notices, and errors through one endpoint
// with HTTP 200, so callers inspect the body shape themselves.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, providers.WrapError(Name, providers.KindRateLimited, "local pacing interrupted", err)
	}

	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, providers.WrapError(Name, providers.KindMalformed, "failed to create request", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("function", params.Get("function")).
			Msg("Alpha Vantage API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.ClassifyTransport(Name, err)
	}
	defer resp.Body.Close()

	if apiErr := providers.ClassifyHTTPStatus(Name, resp); apiErr != nil {
		return nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.WrapError(Name, providers.KindMalformed, "failed to read response", err)
	}

	return body, nil
}

// GetDailySeries retrieves the daily series for a symbol and
// summarizes the window of `days` calendar days into a change record.
func (c *Client) GetDailySeries(ctx context.Context, symbol string, days int) (*models.PriceChangeRecord, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var result dailyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, providers.WrapError(Name, providers.KindMalformed, "failed to decode response", err)
	}

	switch {
	case result.Note != "":
		return nil, providers.NewError(Name, providers.KindRateLimited, result.Note)
	case result.Information != "":
		return nil, providers.NewError(Name, providers.KindRateLimited, result.Information)
	case result.ErrorMessage != "":
		return nil, providers.NewError(Name, providers.KindNotFound, result.ErrorMessage)
	case len(result.Series) == 0:
		return nil, providers.NewError(Name, providers.KindNotFound, "no historical data for "+symbol)
	}

	candles := make([]providers.Candle, 0, len(result.Series))
	for dateStr, bar := range result.Series {
		date, err := time.Parse("2006-01-02", dateStr)
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
