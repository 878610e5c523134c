// Package normalize canonicalizes free-text intake and academic-year
// tokens so eligibility comparisons work across the inconsistent values
// captured by legacy registration forms ("Sept", "September", "9").
package normalize

import "strings"

var monthTokens = []struct {
	prefix string
	number string
}{
	{"jan", "1"},
	{"feb", "2"},
	{"mar", "3"},
	{"apr", "4"},
	{"may", "5"},
	{"jun", "6"},
	{"jul", "7"},
	{"aug", "8"},
	{"sep", "9"},
	{"oct", "10"},
	{"nov", "11"},
	{"dec", "12"},
}

// Intake maps free text containing a month name or number to a canonical
// month-number string ("1".."12"). Unrecognised input falls back to its
// digits only. Empty input yields an empty string.
func Intake(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	for _, m := range monthTokens {
		if strings.Contains(s, m.prefix) {
			return m.number
		}
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Year strips a leading "Year" label from an academic-year token and
// lower-cases the remainder, so "Year 2" and "2" compare equal.
func Year(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "year") {
		s = s[len("year"):]
	}
	return strings.ToLower(strings.TrimSpace(s))
}
