package repair

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// scanState is the structural state of a JSON prefix
type scanState struct {
	stack           []byte // open '{' and '[' in nesting order
	inString        bool
	stringStart     int // opening quote of the unterminated string
	lastStringStart int // opening quote of the last complete string, -1 if none
}

// scan walks s tracking strings, escapes and container nesting.
// Byte-wise scanning is safe for UTF-8: structural characters are ASCII.
func scan(s string) scanState {
	st := scanState{lastStringStart: -1}
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				st.inString = false
				st.lastStringStart = st.stringStart
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
			st.stringStart = i
		case '{', '[':
			st.stack = append(st.stack, c)
		case '}', ']':
			if len(st.stack) > 0 {
				st.stack = st.stack[:len(st.stack)-1]
			}
		}
	}
	return st
}

func (st scanState) inObject() bool {
	return len(st.stack) > 0 && st.stack[len(st.stack)-1] == '{'
}

// partialLiteral matches a cut-off literal, or any number, right after a
// delimiter at the end of input. A number there may itself be truncated.
var partialLiteral = regexp.MustCompile(`[:,\[]\s*(t|tr|tru|f|fa|fal|fals|n|nu|nul|-?\d+(?:\.\d*)?(?:[eE][+-]?\d*)?|-)$`)

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func trimRightSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// trimFragment removes an incomplete trailing key/value: an unterminated
// string, a cut-off literal, a dangling "key": or a bare key in an object.
func trimFragment(s string) string {
	s = trimRightSpace(s)
	if st := scan(s); st.inString {
		s = trimRightSpace(s[:st.stringStart])
	}

	for {
		before := s
		s = trimRightSpace(s)

		if m := partialLiteral.FindStringSubmatchIndex(s); m != nil {
			s = trimRightSpace(s[:m[2]])
		}

		if strings.HasSuffix(s, ":") {
			s = dropTrailingString(trimRightSpace(s[:len(s)-1]))
		}

		if strings.HasSuffix(s, `"`) {
			st := scan(s)
			if st.inObject() && st.lastStringStart >= 0 {
				prev := trimRightSpace(s[:st.lastStringStart])
				if strings.HasSuffix(prev, "{") || strings.HasSuffix(prev, ",") {
					s = prev
				}
			}
		}

		if s == before {
			return s
		}
	}
}

// dropTrailingString removes the complete string literal that ends s
func dropTrailingString(s string) string {
	if !strings.HasSuffix(s, `"`) {
		return s
	}
	st := scan(s)
	if st.lastStringStart < 0 {
		return s
	}
	return trimRightSpace(s[:st.lastStringStart])
}

// stripTrailingCommas removes commas at the end of s and commas that
// directly precede a closing bracket or brace, outside of strings.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j == len(s) || s[j] == '}' || s[j] == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return trimRightSpace(b.String())
}

// closeBrackets appends the closers still missing from s. Closers follow the
// nesting order, so an array closes before the object that contains it.
func closeBrackets(s string) string {
	st := scan(s)
	var b strings.Builder
	b.WriteString(s)
	if st.inString {
		b.WriteByte('"')
	}
	for i := len(st.stack) - 1; i >= 0; i-- {
		if st.stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

var correctionsKey = regexp.MustCompile(`"corrections"\s*:\s*\[`)

// extractCorrections pulls every complete object out of the corrections
// array, ignoring everything else in the document. found is false when the
// array cannot be located at all.
func extractCorrections(s string) (items []any, found bool) {
	loc := correctionsKey.FindStringIndex(s)
	if loc == nil {
		return nil, false
	}

	items = make([]any, 0)
	depth, start := 0, -1
	inString, escaped := false, false
	for i := loc[1]; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			if depth == 0 && c == '{' {
				start = i
			}
			depth++
		case '}', ']':
			if depth == 0 {
				return items, true // end of the corrections array
			}
			depth--
			if depth == 0 && c == '}' && start >= 0 {
				var item map[string]any
				if err := json.Unmarshal([]byte(s[start:i+1]), &item); err == nil {
					items = append(items, item)
				}
				start = -1
			}
		}
	}
	return items, true
}

// stripCodeFences removes a surrounding ``` fence, tolerating a missing close
func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONCandidate returns the span from the first opener to the last
// matching closer, dropping prose on either side
func extractJSONCandidate(content string) string {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// skipLeadingProse drops anything before the first opener
func skipLeadingProse(content string) string {
	if start := strings.IndexAny(content, "{["); start > 0 {
		return content[start:]
	}
	return content
}
