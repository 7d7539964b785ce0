package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/common"
	"github.com/ternarybob/peritus/internal/interfaces"
)

const intentSystemPrompt = `You identify the single US stock ticker a question is about.
Respond with only a JSON object, no prose:
{"symbol": "<TICKER or empty string>", "company_name": "<name or empty string>", "confidence": <0.0 to 1.0>}
Rules:
- symbol is the primary exchange ticker in upper case (e.g. "AAPL" for Apple).
- confidence reflects how certain you are the question refers to that company.
- If the question names no company or security, return an empty symbol with confidence 0.`

// IntentService extracts a candidate ticker from free text using an
// LLM. The result is a candidate only; callers validate existence
// against a market data provider before trusting it.
type IntentService struct {
	generator Generator
	model     string
	logger    arbor.ILogger
}

// NewIntentService creates a ticker intent extractor.
func NewIntentService(generator Generator, model string, logger arbor.ILogger) *IntentService {
	return &IntentService{
		generator: generator,
		model:     model,
		logger:    logger,
	}
}

// ExtractTicker maps free text to a candidate symbol. Returns
// interfaces.ErrNoCandidateFound when the model finds no company in
// the text.
func (s *IntentService) ExtractTicker(ctx context.Context, text string) (*interfaces.IntentResult, error) {
	response, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages: []interfaces.Message{
			{Role: "user", Content: fmt.Sprintf("Question: %s", text)},
		},
		Model:             s.model,
		SystemInstruction: intentSystemPrompt,
		MaxTokens:         256,
	})
	if err != nil {
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	result, err := parseIntentResponse(response.Text)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("symbol", result.Symbol).
		Float64("confidence", result.Confidence).
		Msg("Extracted ticker intent")

	return result, nil
}

// parseIntentResponse decodes and normalizes the model's JSON answer.
func parseIntentResponse(text string) (*interfaces.IntentResult, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("malformed intent response: %w", err)
	}

	var result interfaces.IntentResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("malformed intent response: %w", err)
	}

	result.Symbol = common.NormalizeSymbol(result.Symbol)
	if result.Symbol == "" {
		return nil, interfaces.ErrNoCandidateFound
	}
	if !common.ValidSymbol(result.Symbol) {
		return nil, fmt.Errorf("intent produced invalid symbol %q", result.Symbol)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	result.CompanyName = strings.TrimSpace(result.CompanyName)

	return &result, nil
}

var _ interfaces.IntentExtractor = (*IntentService)(nil)
