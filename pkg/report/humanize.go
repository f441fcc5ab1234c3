package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Humanize turns a field key into a display label:
// "evidenceFor" becomes "Evidence For", "feared_outcome" becomes "Feared Outcome".
// A Caser carries state, so each call builds its own.
func Humanize(key string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			current = append(current, r)
		case unicode.IsDigit(r) && i > 0 && !unicode.IsDigit(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	return cases.Title(language.English).String(strings.Join(words, " "))
}
