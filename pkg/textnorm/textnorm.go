// Package textnorm canonicalises free-text place names for table lookups.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key lower-cases value, strips diacritics and collapses runs of whitespace,
// so "  Bogotá   D.C." and "bogota d.c." produce the same key.
func Key(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Contains reports whether any entry in list has the same key as value.
func Contains(list []string, value string) bool {
	key := Key(value)
	for _, candidate := range list {
		if Key(candidate) == key {
			return true
		}
	}
	return false
}
