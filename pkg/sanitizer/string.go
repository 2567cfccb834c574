package sanitizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Curly apostrophes and typographic hyphens in names fold to ASCII.
var namePunctuation = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u02bc", "'",
	"\u2010", "-", "\u2011", "-", "\u2013", "-",
)

// NormalizeText composes s to NFC, drops control and zero-width characters
// and collapses whitespace runs into single spaces.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is used for patient and doctor names.
func NormalizeName(name string) string {
	return NormalizeText(namePunctuation.Replace(name))
}

// NormalizeEmail lowercases an address and strips the "mailto:" prefix and
// angle brackets that come with copied addresses.
func NormalizeEmail(email string) string {
	email = strings.ToLower(NormalizeText(email))
	email = strings.TrimPrefix(email, "mailto:")
	if strings.HasPrefix(email, "<") && strings.HasSuffix(email, ">") {
		email = email[1 : len(email)-1]
	}
	return strings.TrimSpace(email)
}

// NormalizeID lowercases a uuid and strips surrounding braces.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "{") && strings.HasSuffix(id, "}") {
		id = id[1 : len(id)-1]
	}
	return strings.ToLower(id)
}

// NormalizeTimestamp upper-cases the RFC3339 'T' separator and 'Z' zone.
func NormalizeTimestamp(ts string) string {
	return strings.ToUpper(strings.TrimSpace(ts))
}
