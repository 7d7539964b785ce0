// Package marketaux is the client for the Marketaux news API. It
// serves entity-filtered company news with sentiment scores.
package marketaux

import (
	"context"
	"encoding/json"
	"fmt"
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
	Name = "marketaux"

	// DefaultBaseURL is the base URL for the Marketaux API.
	DefaultBaseURL = "https://api.marketaux.com/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per minute).
	DefaultRateLimit = 20

	// Sentiment score cutoffs for labeling an article.
	positiveThreshold = 0.15
	negativeThreshold = -0.15
)

// Client is a Marketaux API client.
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

// NewClient creates a new Marketaux API client.
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
	params.Set("api_token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return providers.WrapError(Name, providers.KindMalformed, "failed to create request", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Marketaux API request")
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

// GetNews retrieves recent news for a symbol within the trailing
// daysBack window, capped at limit. Each article's sentiment label is
// derived from the entity sentiment score for the requested symbol.
func (c *Client) GetNews(ctx context.Context, symbol string, daysBack, limit int) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("symbols", symbol)
	params.Set("filter_entities", "true")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("published_after", time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02"))

	var result newsResponse
	if err := c.get(ctx, "/news/all", params, &result); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(result.Data))
	for _, article := range result.Data {
		if article.Title == "" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, article.PublishedAt)
		items = append(items, models.NewsItem{
			Title:       article.Title,
			Summary:     article.Description,
			Source:      article.Source,
			PublishedAt: published,
			URL:         article.URL,
			Sentiment:   sentimentLabel(article, symbol),
		})
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

// sentimentLabel maps the entity sentiment score for symbol onto a
// positive/negative/neutral label.
func sentimentLabel(article newsArticle, symbol string) string {
	for _, entity := range article.Entities {
		if entity.Symbol != symbol {
			continue
		}
		switch {
		case entity.SentimentScore >= positiveThreshold:
			return "positive"
		case entity.SentimentScore <= negativeThreshold:
			return "negative"
		default:
			return "neutral"
		}
	}
	return ""
}
