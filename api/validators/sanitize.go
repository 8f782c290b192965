package validators

import (
	"net/http"
	"strings"
	"unicode"
)

// SanitizeString collapses whitespace runs, drops control characters and cuts
// the result to maxLen runes. A maxLen of zero disables the cut.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.FieldsFunc(input, unicode.IsSpace), " ")
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}

// SearchTerm reads a free-text query parameter.
func SearchTerm(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}
