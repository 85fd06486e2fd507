// Package position locates a claimed substring in a source text when the
// claimed offsets cannot be trusted. All offsets are rune offsets.
package position

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/majalla/internal/model"
)

// Strategy names the search step that produced a resolution
type Strategy string

const (
	StrategyClaimed   Strategy = "claimed"   // Claimed span accepted verbatim
	StrategyProximity Strategy = "proximity" // Exact match near the claimed start
	StrategyWindow    Strategy = "window"    // Exact match inside the search window
	StrategyFold      Strategy = "window_fold"
	StrategyContact   Strategy = "contact" // Email/URL literal match inside the search window
	StrategyGlobal    Strategy = "global"  // Exact match anywhere in the text
	StrategyNone      Strategy = "none"
)

// Options bound the searches around a claimed span, in runes
type Options struct {
	Proximity int // Search radius around the claimed start when the claim checks out
	Accept    int // Maximum drift from the claimed start for a proximity match
	Search    int // Window radius for the fallback searches
}

// DefaultOptions returns the standard search windows
func DefaultOptions() Options {
	return Options{Proximity: 100, Accept: 200, Search: 500}
}

// Resolution is where a claimed substring actually sits in the source
type Resolution struct {
	Span     model.Span
	Found    bool
	Strategy Strategy
	Text     string // Source text at Span
}

// Resolver finds claimed substrings in source texts
type Resolver struct {
	opts Options
}

// NewResolver creates a resolver; zero option fields take their defaults
func NewResolver(opts Options) *Resolver {
	def := DefaultOptions()
	if opts.Proximity <= 0 {
		opts.Proximity = def.Proximity
	}
	if opts.Accept <= 0 {
		opts.Accept = def.Accept
	}
	if opts.Search <= 0 {
		opts.Search = def.Search
	}
	return &Resolver{opts: opts}
}

// Resolve locates claimed in source using the default windows
func Resolve(source, claimed string, span model.Span) Resolution {
	return NewResolver(DefaultOptions()).Resolve(source, claimed, span)
}

// Resolve finds the true span of claimed, preferring matches near the
// claimed span. When nothing matches, the claimed span is returned with
// Found false and must not be used as a position.
func (r *Resolver) Resolve(source, claimed string, span model.Span) Resolution {
	src := []rune(source)
	needle := []rune(claimed)
	notFound := Resolution{Span: span, Strategy: StrategyNone}
	if len(needle) == 0 || len(src) == 0 || len(needle) > len(src) {
		return notFound
	}

	start, end := clamp(span.Start, 0, len(src)), clamp(span.End, 0, len(src))
	if end < start {
		end = start
	}

	// 1. The claim checks out: pin it to the nearest exact occurrence
	atSpan := strings.TrimSpace(string(src[start:end]))
	if atSpan != "" && strings.Contains(atSpan, claimed) {
		lo, hi := start-r.opts.Proximity, start+r.opts.Proximity+len(needle)
		if pos, ok := nearest(src, needle, lo, hi, start, exact); ok && abs(pos-start) <= r.opts.Accept {
			return r.found(src, pos, len(needle), StrategyProximity)
		}
		if string(src[start:end]) == claimed {
			return r.found(src, start, end-start, StrategyClaimed)
		}
	}

	lo, hi := start-r.opts.Search, end+r.opts.Search

	// 2. Exact match in the window
	if pos, ok := nearest(src, needle, lo, hi, start, exact); ok {
		return r.found(src, pos, len(needle), StrategyWindow)
	}

	// 3. Case-insensitive match in the window
	if pos, ok := nearest(src, needle, lo, hi, start, fold); ok {
		return r.found(src, pos, len(needle), StrategyFold)
	}

	// 4. Emails and URLs: literal match tolerating OCR-inserted spaces
	if LooksLikeContact(claimed) {
		if pos, n, ok := contactMatch(src, claimed, lo, hi, start); ok {
			return r.found(src, pos, n, StrategyContact)
		}
	}

	// 5. Anywhere in the text
	if pos, ok := nearest(src, needle, 0, len(src), start, exact); ok {
		return r.found(src, pos, len(needle), StrategyGlobal)
	}

	return notFound
}

func (r *Resolver) found(src []rune, pos, n int, strategy Strategy) Resolution {
	return Resolution{
		Span:     model.Span{Start: pos, End: pos + n},
		Found:    true,
		Strategy: strategy,
		Text:     string(src[pos : pos+n]),
	}
}

// LooksLikeContact reports whether s resembles an email address or URL
func LooksLikeContact(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "@") || strings.Contains(lower, "www.") || strings.Contains(lower, "http")
}

func exact(a, b rune) bool { return a == b }

func fold(a, b rune) bool { return a == b || unicode.ToLower(a) == unicode.ToLower(b) }

// nearest returns the occurrence of needle inside src[lo:hi] whose start is
// closest to target. Ties go to the leftmost occurrence.
func nearest(src, needle []rune, lo, hi, target int, eq func(a, b rune) bool) (int, bool) {
	lo, hi = clamp(lo, 0, len(src)), clamp(hi, 0, len(src))
	best, found := 0, false
	for i := lo; i+len(needle) <= hi; i++ {
		if !matchAt(src, needle, i, eq) {
			continue
		}
		if !found || abs(i-target) < abs(best-target) {
			best, found = i, true
		}
	}
	return best, found
}

func matchAt(src, needle []rune, i int, eq func(a, b rune) bool) bool {
	for j, c := range needle {
		if !eq(src[i+j], c) {
			return false
		}
	}
	return true
}

// contactMatch searches src[lo:hi] for claimed as an escaped literal,
// case-insensitive, allowing whitespace between its characters. It returns
// the rune offset and rune length of the match closest to target.
func contactMatch(src []rune, claimed string, lo, hi, target int) (int, int, bool) {
	var pattern strings.Builder
	pattern.WriteString(`(?i)`)
	first := true
	for _, c := range claimed {
		if unicode.IsSpace(c) {
			continue
		}
		if !first {
			pattern.WriteString(`\s*`)
		}
		pattern.WriteString(regexp.QuoteMeta(string(c)))
		first = false
	}
	if first {
		return 0, 0, false
	}
	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return 0, 0, false
	}

	lo, hi = clamp(lo, 0, len(src)), clamp(hi, 0, len(src))
	window := string(src[lo:hi])
	best, bestLen, found := 0, 0, false
	for _, m := range re.FindAllStringIndex(window, -1) {
		pos := lo + utf8.RuneCountInString(window[:m[0]])
		n := utf8.RuneCountInString(window[m[0]:m[1]])
		if !found || abs(pos-target) < abs(best-target) {
			best, bestLen, found = pos, n, true
		}
	}
	return best, bestLen, found
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
