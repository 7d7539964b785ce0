// Package models defines the internal data model shared across the
// analysis pipeline. Values produced by provider adapters are normalized
// into these types exactly once, at the adapter boundary.
package models

import (
	"time"
)

// QueryType distinguishes free-text queries from structured payloads.
type QueryType string

const (
	// QueryTypeNaturalLanguage is a free-text question about a stock.
	QueryTypeNaturalLanguage QueryType = "natural_language"
	// QueryTypeStructured carries an explicit ticker symbol.
	QueryTypeStructured QueryType = "structured"
)

// AnalysisRequest is the immutable input to the pipeline.
type AnalysisRequest struct {
	Query                  string    `json:"query"`
	QueryType              QueryType `json:"query_type"`
	Symbol                 string    `json:"symbol,omitempty"` // structured queries only
	IncludeFundamentals    bool      `json:"include_fundamentals"`
	IncludeInsiderActivity bool      `json:"include_insider_activity"`
	LookbackDays           []int     `json:"lookback_days,omitempty"` // overrides configured windows
}

// Ticker is a resolved, validated stock symbol. Produced once per request
// by the resolution stage and never re-resolved afterwards.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"company_name,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Category partitions cache entries and provider rate-limit windows.
type Category string

const (
	CategoryQuote      Category = "quote"
	CategoryNews       Category = "news"
	CategoryHistorical Category = "historical"
	CategoryProfile    Category = "profile"
)

// QuoteSnapshot is the normalized current-price view of a ticker.
// Change always equals CurrentPrice - PreviousClose; adapters recompute
// it when the upstream source omits or disagrees with its own fields.
type QuoteSnapshot struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	Volume        int64     `json:"volume,omitempty"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewsItem is one normalized news article, newest-first in any sequence.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url,omitempty"`
	Sentiment   string    `json:"sentiment,omitempty"` // positive | negative | neutral
}

// PriceChangeMeta records which provider actually answered and the date
// range it used, which may differ from the requested window on sparse data.
type PriceChangeMeta struct {
	StartDateUsed string `json:"start_date_used"`
	EndDateUsed   string `json:"end_date_used"`
	DataPoints    int    `json:"data_points"`
	DataSource    string `json:"data_source"`
}

// PriceChangeRecord summarizes price movement over one lookback window.
type PriceChangeRecord struct {
	Period        string          `json:"period"` // e.g. "7 days"
	Open          float64         `json:"open"`
	Close         float64         `json:"close"`
	High          float64         `json:"high"`
	Low           float64         `json:"low"`
	Change        float64         `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	Meta          PriceChangeMeta `json:"meta"`
}

// CompanyProfile is the normalized company metadata used for resolution
// validation and market-cap enrichment.
type CompanyProfile struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Exchange  string  `json:"exchange,omitempty"`
	Industry  string  `json:"industry,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`
	WebURL    string  `json:"web_url,omitempty"`
}

// Bundle is the joined output of the parallel fetch stages. Each optional
// category carries either its payload or the error that exhausted it;
// only Quote is mandatory, so a Bundle with a nil Quote never leaves the
// coordinator.
type Bundle struct {
	Quote       *QuoteSnapshot
	QuoteSource string

	News       []NewsItem
	NewsSource string
	NewsErr    error

	History       []PriceChangeRecord
	HistoryErrs   map[int]error // keyed by lookback days
	HistorySource string

	Profile *CompanyProfile // best effort, may be nil
}

// NewsAvailable reports whether the news category populated.
func (b *Bundle) NewsAvailable() bool {
	return b.NewsErr == nil && len(b.News) > 0
}

// AnalysisResult is the terminal artifact returned to the caller.
// Immutable once constructed by the synthesis stage.
type AnalysisResult struct {
	RequestID       string              `json:"request_id"`
	Ticker          string              `json:"ticker"`
	CompanyName     string              `json:"company_name,omitempty"`
	AnalysisSummary string              `json:"analysis_summary"`
	PriceData       *QuoteSnapshot      `json:"price_data,omitempty"`
	RecentNews      []NewsItem          `json:"recent_news"`
	KeyInsights     []string            `json:"key_insights"`
	Sentiment       string              `json:"sentiment,omitempty"`
	ConfidenceScore float64             `json:"confidence_score,omitempty"`
	PriceChangeData []PriceChangeRecord `json:"price_change_data,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
}
