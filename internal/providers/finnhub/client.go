// Package finnhub is the client for the Finnhub stock API. It serves
// quotes, company news, company profiles, and symbol search.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/peritus/internal/models"
	"github.com/ternarybob/peritus/internal/providers"
)

const (
	// Name identifies this provider in failure records and cache keys.
	Name = "finnhub"

	// DefaultBaseURL is the base URL for the Finnhub API.
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per minute).
	DefaultRateLimit = 60
)

// Client is a Finnhub API client.
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

// NewClient creates a new Finnhub API client.
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

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return providers.WrapError(Name, providers.KindRateLimited, "local pacing interrupted", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return providers.WrapError(Name, providers.KindMalformed, "failed to create request", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Finnhub API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.ClassifyTransport(Name, err)
	}
	defer resp.Body.Close()

	if apiErr := providers.ClassifyHTTPStatus(Name, resp); apiErr != nil {
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return providers.WrapError(Name, providers.KindMalformed, "failed to decode response", err)
	}

	return nil
}

// GetQuote retrieves the current quote for a symbol. Finnhub answers
// unknown symbols with HTTP 200 and an all-zero payload, which is
// reported as not found.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var result quoteResponse
	if err := c.get(ctx, "/quote", params, &result); err != nil {
		return nil, err
	}

	if result.Current == 0 && result.PreviousClose == 0 {
		return nil, providers.NewError(Name, providers.KindNotFound, "no quote data for "+symbol)
	}

	quote := &models.QuoteSnapshot{
		Symbol:        symbol,
		CurrentPrice:  result.Current,
		PreviousClose: result.PreviousClose,
		Change:        result.Change,
		ChangePercent: result.ChangePercent,
		Open:          result.Open,
		High:          result.High,
		Low:           result.Low,
		Timestamp:     time.Unix(result.Timestamp, 0).UTC(),
	}
	providers.ReconcileChange(quote)
	return quote, nil
}

// GetCompanyNews retrieves recent company news for a symbol within the
// trailing daysBack window, newest first, capped at limit.
func (c *Client) GetCompanyNews(ctx context.Context, symbol string, daysBack, limit int) ([]models.NewsItem, error) {
	now := time.Now().UTC()
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", now.AddDate(0, 0, -daysBack).Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))

	var result []newsArticle
	if err := c.get(ctx, "/company-news", params, &result); err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Datetime > result[j].Datetime })

	items := make([]models.NewsItem, 0, limit)
	for _, article := range result {
		if article.Headline == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       article.Headline,
			Summary:     article.Summary,
			Source:      article.Source,
			PublishedAt: time.Unix(article.Datetime, 0).UTC(),
			URL:         article.URL,
		})
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

// GetCompanyProfile retrieves the company profile for a symbol.
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var result profileResponse
	if err := c.get(ctx, "/stock/profile2", params, &result); err != nil {
		return nil, err
	}

	// Unknown symbols come back as an empty object.
	if result.Name == "" && result.Ticker == "" {
		return nil, providers.NewError(Name, providers.KindNotFound, "no profile for "+symbol)
	}

	return &models.CompanyProfile{
		Symbol:    symbol,
		Name:      result.Name,
		Exchange:  result.Exchange,
		Industry:  result.Industry,
		MarketCap: result.MarketCap,
		WebURL:    result.WebURL,
	}, nil
}

// SearchSymbol looks up the best symbol match for a free-text query.
// Prefers common stock results whose symbol has no exchange suffix.
func (c *Client) SearchSymbol(ctx context.Context, query string) (*models.Ticker, error) {
	params := url.Values{}
	params.Set("q", query)

	var result searchResponse
	if err := c.get(ctx, "/search", params, &result); err != nil {
		return nil, err
	}

	if result.Count == 0 || len(result.Result) == 0 {
		return nil, providers.NewError(Name, providers.KindNotFound, "no matches for "+query)
	}

	best := result.Result[0]
	for _, candidate := range result.Result {
		if candidate.Type == "Common Stock" && !strings.Contains(candidate.Symbol, ".") {
			best = candidate
			break
		}
	}

	return &models.Ticker{
		Symbol:      best.Symbol,
		CompanyName: best.Description,
		Confidence:  1.0,
	}, nil
}
