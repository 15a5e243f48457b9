// Package normalize folds user-visible text into comparable forms.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// FoldWidth maps full-width ASCII to narrow and half-width katakana to wide.
// "ＲＪ０１２３" -> "RJ0123".
func FoldWidth(s string) string {
	return width.Fold.String(s)
}

// SearchKey turns s into the form used for substring and search matching:
// NFKC, width folded, case folded, whitespace collapsed.
func SearchKey(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// DisplayName trims s and collapses internal runs of whitespace.
func DisplayName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Contains reports whether haystack contains needle after both are folded with SearchKey.
// An empty needle matches everything.
func Contains(haystack, needle string) bool {
	return strings.Contains(SearchKey(haystack), SearchKey(needle))
}
