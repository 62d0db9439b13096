package repositories

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Attributes whose values live outside the generic value store. The table
// names follow from the attribute name: address -> site_addresses,
// architect -> architects + site_architects(architect_id).
var (
	domainTableAttributes = map[string]bool{
		"address":        true,
		"bbl":            true,
		"alternate_name": true,
	}
	vocabularyAttributes = map[string]bool{
		"borough":   true,
		"architect": true,
		"style":     true,
	}
)

// DomainTable returns the free-text table behind a tbl attribute.
func DomainTable(attributeName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(attributeName))
	if !domainTableAttributes[name] {
		return "", false
	}
	return "site_" + inflection.Plural(name), true
}

// Vocabulary describes a controlled vocabulary and the table linking sites to it.
type Vocabulary struct {
	RefTable  string
	LinkTable string
	FKColumn  string
}

// VocabularyFor returns the vocabulary behind a ref or refs attribute.
func VocabularyFor(attributeName string) (Vocabulary, bool) {
	name := strings.ToLower(strings.TrimSpace(attributeName))
	if !vocabularyAttributes[name] {
		return Vocabulary{}, false
	}
	plural := inflection.Plural(name)
	return Vocabulary{
		RefTable:  plural,
		LinkTable: "site_" + plural,
		FKColumn:  name + "_id",
	}, true
}
