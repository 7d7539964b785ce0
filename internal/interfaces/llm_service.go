// Package interfaces defines the service contracts wired through the
// application container. Implementations live under internal/services.
package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/peritus/internal/models"
)

// Message represents a single turn in an LLM conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ErrNoCandidateFound is returned by an IntentExtractor when the query
// contains no identifiable company or symbol.
var ErrNoCandidateFound = errors.New("no candidate ticker found in query")

// IntentResult is the opaque extractor's view of a query.
type IntentResult struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"company_name,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// IntentExtractor maps free text to a candidate ticker symbol.
// The returned symbol is a candidate only; callers must validate
// existence before trusting it.
type IntentExtractor interface {
	ExtractTicker(ctx context.Context, text string) (*IntentResult, error)
}

// Facts is the structured input handed to the Synthesizer. Optional
// sections are nil/empty when their category degraded; implementations
// must produce a valid (narrower) narrative regardless.
type Facts struct {
	Symbol      string
	CompanyName string
	Quote       *models.QuoteSnapshot
	News        []models.NewsItem
	History     []models.PriceChangeRecord
}

// Synthesis is the narrative produced from a fact sheet.
type Synthesis struct {
	Summary     string   `json:"analysis_summary"`
	KeyInsights []string `json:"key_insights"`
	Sentiment   string   `json:"sentiment"`
	Confidence  float64  `json:"confidence_score"`
}

// Synthesizer turns structured facts into a narrative summary with
// sentiment and key insights.
type Synthesizer interface {
	Synthesize(ctx context.Context, facts *Facts) (*Synthesis, error)
}
