package common

import (
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"aapl", "AAPL"},
		{"  msft  ", "MSFT"},
		{"BRK.B", "BRK.B"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeSymbol(tt.input); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"AAPL", true},
		{"aapl", true}, // normalized before matching
		{"T", true},
		{"GOOGL", true},
		{"BRK.B", true},
		{"BF-B", true},

		{"", false},
		{"TOOLONG", false},
		{"123", false},
		{"AAPL1", false},
		{"XYZINVALID123", false},
		{"BRK.BBB", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidSymbol(tt.input); got != tt.want {
				t.Errorf("ValidSymbol(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractCandidateSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"TSLA price", "TSLA"},
		{"what is AAPL doing today?", "AAPL"},
		{"what is apple doing today?", ""}, // lowercase words are not tickers
		{"BRK.B earnings", "BRK.B"},
		{"F", "F"}, // single-token input may be a one-letter symbol
		{"I want the Apple stock price", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExtractCandidateSymbol(tt.input); got != tt.want {
				t.Errorf("ExtractCandidateSymbol(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
