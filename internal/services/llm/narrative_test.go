package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
)

func TestBuildFactSheetFullFacts(t *testing.T) {
	facts := &interfaces.Facts{
		Symbol:      "AAPL",
		CompanyName: "Apple Inc",
		Quote: &models.QuoteSnapshot{
			CurrentPrice:  189.5,
			PreviousClose: 187.2,
			Change:        2.3,
			ChangePercent: 1.23,
			Open:          188.0,
			High:          190.1,
			Low:           187.2,
			Volume:        52000000,
		},
		News: []models.NewsItem{
			{Title: "Apple unveils new chip", PublishedAt: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), Sentiment: "positive"},
		},
		History: []models.PriceChangeRecord{
			{Period: "7d", Open: 185.0, Close: 189.5, ChangePercent: 2.43, High: 190.1, Low: 184.0},
		},
	}

	sheet := buildFactSheet(facts)
	assert.Contains(t, sheet, "Apple Inc (AAPL)")
	assert.Contains(t, sheet, "current: 189.50")
	assert.Contains(t, sheet, "7d: 185.00 to 189.50")
	assert.Contains(t, sheet, "Apple unveils new chip")
	assert.Contains(t, sheet, "sentiment: positive")
	assert.NotContains(t, sheet, "unavailable")
}

func TestBuildFactSheetDegradedSections(t *testing.T) {
	facts := &interfaces.Facts{
		Symbol: "AAPL",
		Quote:  &models.QuoteSnapshot{CurrentPrice: 189.5, PreviousClose: 187.2},
	}

	sheet := buildFactSheet(facts)
	assert.Contains(t, sheet, "PRICE HISTORY\n- unavailable")
	assert.Contains(t, sheet, "RECENT NEWS\n- unavailable")
}

func TestParseSynthesisResponse(t *testing.T) {
	synthesis, err := parseSynthesisResponse("```json\n" + `{
		"analysis_summary": "Apple closed higher after strong chip news.",
		"key_insights": ["Up 1.23% on the day", "Positive product coverage"],
		"sentiment": "positive",
		"confidence_score": 0.85
	}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "positive", synthesis.Sentiment)
	assert.Len(t, synthesis.KeyInsights, 2)
	assert.Equal(t, 0.85, synthesis.Confidence)
}

func TestParseSynthesisResponseMissingSummary(t *testing.T) {
	_, err := parseSynthesisResponse(`{"analysis_summary":"","sentiment":"positive"}`)
	assert.Error(t, err)
}

func TestParseSynthesisResponseUnknownSentiment(t *testing.T) {
	synthesis, err := parseSynthesisResponse(`{"analysis_summary":"Flat day.","sentiment":"mixed","confidence_score":0.4}`)
	require.NoError(t, err)
	assert.Equal(t, "neutral", synthesis.Sentiment)
}
