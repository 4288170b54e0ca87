// Package asset holds the shared asset vocabulary: canonical tickers and unit scaling.
package asset

import (
	"regexp"
	"strings"
)

// chainSuffix matches the padded suffix some indexers append to a ticker, e.g. "sFB___000".
var chainSuffix = regexp.MustCompile(`_{2,}[0-9]*$`)

// NormalizeTicker returns the canonical key for a ticker: suffix stripped, trimmed, upper-cased.
// Normalizing an already normalized ticker returns it unchanged.
func NormalizeTicker(t string) string {
	t = strings.TrimSpace(t)
	for {
		stripped := strings.TrimSpace(chainSuffix.ReplaceAllString(t, ""))
		if stripped == t {
			break
		}
		t = stripped
	}
	return strings.ToUpper(t)
}

// SameTicker reports whether two spellings refer to the same asset.
func SameTicker(a, b string) bool {
	return NormalizeTicker(a) == NormalizeTicker(b)
}
