// Package apply rewrites a source text with reviewer-confirmed corrections.
package apply

import (
	"sort"
	"unicode"

	"github.com/ppiankov/majalla/internal/model"
)

// Selected returns the corrections a reviewer approved or marked for deletion
func Selected(corrections []model.Correction) []model.Correction {
	out := make([]model.Correction, 0, len(corrections))
	for _, c := range corrections {
		if c.Status.Applicable() {
			out = append(out, c)
		}
	}
	return out
}

// Apply splices every approved or deleted correction into text and returns
// the rewritten text. Corrections are applied right to left by span start,
// so the result does not depend on the order they are passed in. A
// correction whose span is out of range, or overlaps one already applied,
// is skipped. A deletion that leaves whitespace on both sides of the seam
// drops the space to its right, so removing an inline word does not leave a
// double space.
func Apply(text string, corrections []model.Correction) string {
	out, _ := ApplyReport(text, corrections)
	return out
}

// ApplyReport is Apply that also returns the corrections it had to skip
func ApplyReport(text string, corrections []model.Correction) (string, []model.Correction) {
	selected := Selected(corrections)
	skipped := make([]model.Correction, 0)
	if len(selected) == 0 {
		return text, skipped
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Span.Start != selected[j].Span.Start {
			return selected[i].Span.Start > selected[j].Span.Start
		}
		return selected[i].Span.End > selected[j].Span.End
	})

	runes := []rune(text)
	var applied []model.Span
	for _, c := range selected {
		if !c.Span.Valid(len(runes)) || overlapsAny(c.Span, applied) {
			skipped = append(skipped, c)
			continue
		}

		replacement := []rune(c.Replacement)
		next := make([]rune, 0, len(runes)-c.Span.Len()+len(replacement))
		next = append(next, runes[:c.Span.Start]...)
		next = append(next, replacement...)
		next = append(next, runes[c.Span.End:]...)
		runes = next
		if len(replacement) == 0 && c.Span.Len() > 0 {
			runes = collapseSeam(runes, c.Span.Start)
		}

		applied = append(applied, c.Span)
	}

	return string(runes), skipped
}

// collapseSeam removes the horizontal space at i when the rune before it is
// also whitespace. Only runes at or right of i move.
func collapseSeam(runes []rune, i int) []rune {
	if i == 0 || i >= len(runes) {
		return runes
	}
	if !unicode.IsSpace(runes[i-1]) || !isHorizontalSpace(runes[i]) {
		return runes
	}
	return append(runes[:i], runes[i+1:]...)
}

func isHorizontalSpace(r rune) bool {
	return unicode.IsSpace(r) && r != '\n' && r != '\r'
}

// overlapsAny checks against spans in original coordinates. Everything
// already applied lies at or right of the current span, so those
// coordinates are still comparable.
func overlapsAny(span model.Span, applied []model.Span) bool {
	for _, a := range applied {
		if span.Overlaps(a) {
			return true
		}
		// Two insertions at the same point would interleave
		if span.Len() == 0 && a.Len() == 0 && span.Start == a.Start {
			return true
		}
	}
	return false
}
