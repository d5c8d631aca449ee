// Package textnorm normalizes message text ahead of pattern matching.
//
// The intent and entity rule tables are written in unaccented ASCII so that
// \b word boundaries behave the same for French and English input. Fold
// brings the incoming text into that space: diacritics are stripped
// (fiabilité -> fiabilite) and typographic apostrophes become ASCII ones
// (aujourd’hui -> aujourd'hui). Case is preserved because some downstream
// patterns, license plates in particular, are case-sensitive.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// apostrophes maps typographic quote variants to the ASCII apostrophe used
// in the rule tables.
var apostrophes = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"ʼ", "'", // modifier letter apostrophe
	"´", "'", // acute accent used as apostrophe
	"`", "'",
)

// Fold strips combining diacritical marks and normalizes apostrophes while
// preserving case. The transform chain is built per call: x/text
// transformers carry internal state and must not be shared across
// goroutines.
func Fold(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, s)
	if err != nil {
		folded = s
	}
	return apostrophes.Replace(folded)
}

// FoldLower folds and lowercases, the form the intent rulebook matches
// against.
func FoldLower(s string) string {
	return strings.ToLower(Fold(s))
}
