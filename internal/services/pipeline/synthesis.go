package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
)

// Composer turns a gathered bundle into the final analysis result,
// delegating the narrative to a Synthesizer and degrading to a factual
// summary when the model is unavailable.
type Composer struct {
	synthesizer interfaces.Synthesizer
	logger      arbor.ILogger
	now         func() time.Time
}

// NewComposer creates a result composer.
func NewComposer(synthesizer interfaces.Synthesizer, logger arbor.ILogger) *Composer {
	return &Composer{
		synthesizer: synthesizer,
		logger:      logger,
		now:         time.Now,
	}
}

// Compose builds the analysis result for a resolved ticker and its
// gathered bundle. A synthesizer failure does not fail the request:
// the result falls back to a plain factual summary with no insights.
func (c *Composer) Compose(ctx context.Context, requestID string, ticker *models.Ticker, bundle *models.Bundle) *models.AnalysisResult {
	companyName := ticker.CompanyName
	if companyName == "" && bundle.Profile != nil {
		companyName = bundle.Profile.Name
	}
	if bundle.Quote != nil && bundle.Profile != nil && bundle.Quote.MarketCap == 0 {
		bundle.Quote.MarketCap = bundle.Profile.MarketCap
	}

	result := &models.AnalysisResult{
		RequestID:       requestID,
		Ticker:          ticker.Symbol,
		CompanyName:     companyName,
		PriceData:       bundle.Quote,
		RecentNews:      bundle.News,
		PriceChangeData: bundle.History,
		Timestamp:       c.now().UTC(),
	}
	if result.RecentNews == nil {
		result.RecentNews = []models.NewsItem{}
	}

	synthesis, err := c.synthesizer.Synthesize(ctx, &interfaces.Facts{
		Symbol:      ticker.Symbol,
		CompanyName: companyName,
		Quote:       bundle.Quote,
		News:        bundle.News,
		History:     bundle.History,
	})
	if err != nil {
		c.logger.Warn().
			Str("symbol", ticker.Symbol).
			Err(err).
			Msg("Narrative synthesis failed, returning factual summary")

		result.AnalysisSummary = factualSummary(ticker.Symbol, companyName, bundle)
		result.KeyInsights = []string{}
		result.Sentiment = "neutral"
		return result
	}

	result.AnalysisSummary = synthesis.Summary
	result.KeyInsights = synthesis.KeyInsights
	result.Sentiment = synthesis.Sentiment
	result.ConfidenceScore = synthesis.Confidence
	if result.KeyInsights == nil {
		result.KeyInsights = []string{}
	}

	return result
}

// factualSummary states what was gathered without interpretation.
func factualSummary(symbol, companyName string, bundle *models.Bundle) string {
	name := companyName
	if name == "" {
		name = symbol
	}

	summary := fmt.Sprintf("%s (%s) is trading at %.2f, %+.2f%% against the previous close of %.2f.",
		name, symbol, bundle.Quote.CurrentPrice, bundle.Quote.ChangePercent, bundle.Quote.PreviousClose)

	for _, record := range bundle.History {
		summary += fmt.Sprintf(" Over %s the price moved %+.2f%%.", record.Period, record.ChangePercent)
	}

	if bundle.NewsAvailable() {
		summary += fmt.Sprintf(" %d recent news items were found.", len(bundle.News))
	}

	return summary
}
