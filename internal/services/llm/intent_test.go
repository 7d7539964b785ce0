package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/interfaces"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"symbol":"AAPL"}`, `{"symbol":"AAPL"}`},
		{"fenced", "```json\n{\"symbol\":\"AAPL\"}\n```", `{"symbol":"AAPL"}`},
		{"fenced no lang", "```\n{\"symbol\":\"AAPL\"}\n```", `{"symbol":"AAPL"}`},
		{"surrounded by prose", `Sure! Here you go: {"symbol":"AAPL"} Hope that helps.`, `{"symbol":"AAPL"}`},
		{"nested braces", `{"a":{"b":1},"c":"d"}`, `{"a":{"b":1},"c":"d"}`},
		{"brace inside string", `{"summary":"up {a lot} today"}`, `{"summary":"up {a lot} today"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	_, err := extractJSON("no json here")
	assert.Error(t, err)

	_, err = extractJSON(`{"unterminated": true`)
	assert.Error(t, err)
}

func TestParseIntentResponse(t *testing.T) {
	result, err := parseIntentResponse(`{"symbol":"aapl","company_name":" Apple Inc ","confidence":0.92}`)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, "Apple Inc", result.CompanyName)
	assert.Equal(t, 0.92, result.Confidence)
}

func TestParseIntentResponseNoCandidate(t *testing.T) {
	_, err := parseIntentResponse(`{"symbol":"","company_name":"","confidence":0}`)
	assert.ErrorIs(t, err, interfaces.ErrNoCandidateFound)
}

func TestParseIntentResponseInvalidSymbol(t *testing.T) {
	_, err := parseIntentResponse(`{"symbol":"NOT A TICKER","confidence":0.8}`)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrNoCandidateFound)
}

func TestParseIntentResponseClampsConfidence(t *testing.T) {
	result, err := parseIntentResponse(`{"symbol":"TSLA","confidence":1.7}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)
}
