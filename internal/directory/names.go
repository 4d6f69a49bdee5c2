package directory

import (
	"strings"
	"unicode"
)

// Slug derives a stable, filesystem-safe identifier from a display name.
// Spaces and slashes become underscores, an underscore is inserted before
// internal capitals, everything is lowercased and repeated underscores are
// collapsed. "Bob Smith" -> "bob_smith", "MarcAndré" -> "marc_andré".
func Slug(name string) string {
	runes := []rune(strings.TrimSpace(name))
	out := make([]rune, 0, len(runes)+4)

	appendRune := func(r rune) {
		if r == '_' && len(out) > 0 && out[len(out)-1] == '_' {
			return
		}
		out = append(out, r)
	}

	for i, r := range runes {
		switch {
		case r == ' ' || r == '/':
			appendRune('_')
		case unicode.IsUpper(r) && i > 0:
			appendRune('_')
			appendRune(unicode.ToLower(r))
		default:
			appendRune(unicode.ToLower(r))
		}
	}

	return strings.Trim(string(out), "_")
}

// FirstName derives a first name from a display name: the text before the
// first space, with hyphenated parts each capitalized and rejoined.
// "marc-andre dupont" -> "Marc-Andre".
func FirstName(name string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")
	if first == "" {
		return ""
	}
	parts := strings.Split(first, "-")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, "-")
}

// LastName derives a last name from a display name: the last space-delimited
// token, capitalized. Single-token names have no last name.
func LastName(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return ""
	}
	return capitalize(tokens[len(tokens)-1])
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// lastDigits strips every non-digit rune and keeps the trailing n digits.
// Comparing only the tail tolerates country-code prefix variance between the
// roster and the export ("+12894005633" vs "2894005633").
func lastDigits(s string, n int) string {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) > n {
		digits = digits[len(digits)-n:]
	}
	return string(digits)
}
