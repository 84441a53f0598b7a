package resources

import (
	"strings"
	"time"
	"unicode"
)

// monthLayouts are the accepted spellings of a pay or tax month.
var monthLayouts = []string{
	"2006-01",
	"2006/01",
	"01/2006",
	"Jan 2006",
	"January 2006",
	"2006-1",
}

// NormalizeMonth converts a month to YYYY-MM.
// Returns false when the input is not a recognisable month.
func NormalizeMonth(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidEmail performs a shallow shape check: one @ with text on both sides
// and a dot in the domain.
func ValidEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
