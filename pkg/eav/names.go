package eav

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName trims a field name and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// FoldName returns the key under which two field names are considered the
// same attribute. Names compare case-insensitively.
func FoldName(name string) string {
	return cases.Fold().String(NormalizeName(name))
}

// DisplayText derives a human label from a field name: YEAR_BUILT -> Year Built.
func DisplayText(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	if len(words) == 0 {
		return NormalizeName(name)
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}
