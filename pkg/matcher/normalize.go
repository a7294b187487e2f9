package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum   = regexp.MustCompile(`[^a-z0-9\s]+`)
	reMultiSpace = regexp.MustCompile(`\s+`)
)

// stripDiacritics removes combining marks after NFD decomposition.
func stripDiacritics(s string) string {
	decomp := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomp))
	for _, r := range decomp {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeTitle reduces an issue title to a comparison key: NFKC folds
// width and compatibility forms (full-width digits, ligatures), diacritics
// drop (é -> e, ō -> o), case and punctuation go away.
func normalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = stripDiacritics(s)
	s = strings.ToLower(s)
	s = reNonAlnum.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// normalizeNumber canonicalizes an issue number string for comparison:
// surrounding whitespace, a leading '#', and leading zeros all drop, so
// "#007" equals "7". Non-numeric numbers ("7.5", "Annual 1") compare after
// the same trimming, case-insensitively.
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.ToLower(s)

	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	if trimmed != "" && (trimmed[0] == '.' || !isDigit(rune(trimmed[0]))) && s != trimmed {
		// "0.5" must not become ".5"; keep one leading zero.
		return "0" + trimmed
	}
	return trimmed
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
