package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/interfaces"
)

const narrativeSystemPrompt = `You are a financial analyst writing a brief for a retail investor.
You are given a fact sheet for one stock. Use only those facts; never invent numbers.
Respond with only a JSON object, no prose:
{"analysis_summary": "<2-4 sentence narrative>", "key_insights": ["<insight>", ...], "sentiment": "<positive|negative|neutral>", "confidence_score": <0.0 to 1.0>}
Rules:
- key_insights has 2 to 5 short, concrete items grounded in the fact sheet.
- sentiment reflects the overall picture in the facts, not general market mood.
- If a section of the fact sheet is marked unavailable, do not speculate about it.`

// NarrativeService turns a structured fact sheet into an analyst-style
// narrative via an LLM.
type NarrativeService struct {
	generator Generator
	model     string
	logger    arbor.ILogger
}

// NewNarrativeService creates a narrative synthesizer.
func NewNarrativeService(generator Generator, model string, logger arbor.ILogger) *NarrativeService {
	return &NarrativeService{
		generator: generator,
		model:     model,
		logger:    logger,
	}
}

// Synthesize produces the narrative for a fact sheet.
func (s *NarrativeService) Synthesize(ctx context.Context, facts *interfaces.Facts) (*interfaces.Synthesis, error) {
	response, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages: []interfaces.Message{
			{Role: "user", Content: buildFactSheet(facts)},
		},
		Model:             s.model,
		SystemInstruction: narrativeSystemPrompt,
		MaxTokens:         1024,
	})
	if err != nil {
		return nil, fmt.Errorf("narrative synthesis failed: %w", err)
	}

	synthesis, err := parseSynthesisResponse(response.Text)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("symbol", facts.Symbol).
		Str("sentiment", synthesis.Sentiment).
		Int("insights", len(synthesis.KeyInsights)).
		Msg("Synthesized analysis narrative")

	return synthesis, nil
}

// buildFactSheet renders the gathered data as the model's input.
// Degraded sections are stated as unavailable rather than omitted, so
// the model does not mistake missing data for calm news flow.
func buildFactSheet(facts *interfaces.Facts) string {
	var b strings.Builder

	name := facts.CompanyName
	if name == "" {
		name = facts.Symbol
	}
	fmt.Fprintf(&b, "Fact sheet for %s (%s)\n\n", name, facts.Symbol)

	if q := facts.Quote; q != nil {
		b.WriteString("PRICE\n")
		fmt.Fprintf(&b, "- current: %.2f\n", q.CurrentPrice)
		fmt.Fprintf(&b, "- previous close: %.2f\n", q.PreviousClose)
		fmt.Fprintf(&b, "- day change: %.2f (%.2f%%)\n", q.Change, q.ChangePercent)
		fmt.Fprintf(&b, "- day range: %.2f to %.2f, open %.2f\n", q.Low, q.High, q.Open)
		if q.Volume > 0 {
			fmt.Fprintf(&b, "- volume: %d\n", q.Volume)
		}
	} else {
		b.WriteString("PRICE\n- unavailable\n")
	}

	b.WriteString("\nPRICE HISTORY\n")
	if len(facts.History) == 0 {
		b.WriteString("- unavailable\n")
	}
	for _, record := range facts.History {
		fmt.Fprintf(&b, "- %s: %.2f to %.2f, change %.2f%% (high %.2f, low %.2f)\n",
			record.Period, record.Open, record.Close, record.ChangePercent, record.High, record.Low)
	}

	b.WriteString("\nRECENT NEWS\n")
	if len(facts.News) == 0 {
		b.WriteString("- unavailable\n")
	}
	for _, item := range facts.News {
		fmt.Fprintf(&b, "- [%s] %s", item.PublishedAt.Format("2006-01-02"), item.Title)
		if item.Sentiment != "" {
			fmt.Fprintf(&b, " (sentiment: %s)", item.Sentiment)
		}
		b.WriteString("\n")
		if item.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", item.Summary)
		}
	}

	return b.String()
}

// parseSynthesisResponse decodes and sanity-checks the model's answer.
func parseSynthesisResponse(text string) (*interfaces.Synthesis, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("malformed synthesis response: %w", err)
	}

	var synthesis interfaces.Synthesis
	if err := json.Unmarshal([]byte(raw), &synthesis); err != nil {
		return nil, fmt.Errorf("malformed synthesis response: %w", err)
	}

	if strings.TrimSpace(synthesis.Summary) == "" {
		return nil, fmt.Errorf("synthesis response missing summary")
	}

	switch synthesis.Sentiment {
	case "positive", "negative", "neutral":
	default:
		synthesis.Sentiment = "neutral"
	}

	if synthesis.Confidence < 0 {
		synthesis.Confidence = 0
	}
	if synthesis.Confidence > 1 {
		synthesis.Confidence = 1
	}

	return &synthesis, nil
}

var _ interfaces.Synthesizer = (*NarrativeService)(nil)
