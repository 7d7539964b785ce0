// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// symbolPattern matches exchange-listed US ticker symbols:
// 1-5 letters with an optional class/series suffix (e.g. "BRK.B", "BF-B").
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}([.\-][A-Z]{1,2})?$`)

// NormalizeSymbol trims and uppercases a ticker symbol string.
// It does not validate; use ValidSymbol for that.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether s looks like a listed ticker symbol after
// normalization. This is a syntax check only; existence is verified
// against a live quote lookup by the resolution stage.
func ValidSymbol(s string) bool {
	return symbolPattern.MatchString(NormalizeSymbol(s))
}

// ExtractCandidateSymbol pulls the first token that looks like an explicit
// ticker symbol out of free text (e.g. "TSLA price" -> "TSLA"). Tokens
// shorter than two characters are skipped unless the text is a single
// token, to avoid matching words like "A" or "I" in prose.
func ExtractCandidateSymbol(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	for _, f := range fields {
		token := strings.Trim(f, "?.,!()\"'")
		if token != strings.ToUpper(token) {
			continue // tickers are written in caps
		}
		if len(token) < 2 && len(fields) > 1 {
			continue
		}
		if ValidSymbol(token) {
			return NormalizeSymbol(token)
		}
	}
	return ""
}
