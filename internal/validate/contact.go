package validate

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/majalla/internal/position"
)

// ContactKind classifies a stray email address or URL in page text
type ContactKind string

const (
	ContactNone  ContactKind = ""
	ContactEmail ContactKind = "email"
	ContactURL   ContactKind = "url"
)

var emailPattern = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// ClassifyContact reports what kind of contact detail s is. OCR often
// splits these with spaces, so whitespace is ignored.
func ClassifyContact(s string) ContactKind {
	compact := compactContact(s)
	if compact == "" || !position.LooksLikeContact(compact) {
		return ContactNone
	}
	if emailPattern.MatchString(compact) {
		return ContactEmail
	}

	raw := compact
	if strings.HasPrefix(raw, "www.") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		// Still looks like one, just not a well-formed one
		if strings.Contains(compact, "@") {
			return ContactEmail
		}
		return ContactURL
	}
	return ContactURL
}

// sameContact reports whether one contact string contains the other,
// ignoring case and whitespace
func sameContact(a, b string) bool {
	ca, cb := compactContact(a), compactContact(b)
	if ca == "" || cb == "" {
		return false
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

func compactContact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
