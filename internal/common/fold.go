package common

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldKey NFC-normalises s and applies Unicode case folding, so "STRASSE"
// and "straße" share a key. Whitespace and accents are kept.
func FoldKey(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
