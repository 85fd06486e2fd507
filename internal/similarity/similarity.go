// Package similarity implements the text-similarity primitives used for
// duplicate page detection: token-set Jaccard and character n-gram Jaccard.
// All scores are in [0,1] and symmetric.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultNGramSize is the window used by NGram when none is given
const DefaultNGramSize = 3

// minTokenLen is the shortest token that counts; shorter ones are mostly particles
const minTokenLen = 3

// Normalize strips combining marks (Arabic tashkeel, Latin accents),
// lowercases and collapses runs of whitespace to a single space.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Tokens returns the set of normalized tokens longer than two runes
func Tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(Normalize(s)) {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// NGrams returns the set of n-rune windows over s with whitespace removed
func NGrams(s string, n int) map[string]struct{} {
	if n <= 0 {
		n = DefaultNGramSize
	}
	compact := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			compact = append(compact, r)
		}
	}

	set := make(map[string]struct{})
	for i := 0; i+n <= len(compact); i++ {
		set[string(compact[i:i+n])] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B|, or 0 when either set is empty
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TokenSet is the Jaccard similarity of the two normalized token sets
func TokenSet(a, b string) float64 {
	return Jaccard(Tokens(a), Tokens(b))
}

// NGram is the Jaccard similarity of the two character n-gram sets
func NGram(a, b string, n int) float64 {
	return Jaccard(NGrams(a, n), NGrams(b, n))
}

// Similarity is the combined page similarity: the larger of the token-set and
// trigram scores. N-grams favor near-exact OCR repeats, tokens favor partial overlap.
func Similarity(a, b string) float64 {
	return max(TokenSet(a, b), NGram(a, b, DefaultNGramSize))
}
