package models

// ValueType selects the physical store that holds an attribute's values.
type ValueType string

const (
	ValueTypeInt  ValueType = "int"
	ValueTypeTxt  ValueType = "txt"
	ValueTypeNum  ValueType = "num"
	ValueTypeTS   ValueType = "ts"
	ValueTypeTbl  ValueType = "tbl"  // free-text domain table
	ValueTypeRef  ValueType = "ref"  // single link into a vocabulary
	ValueTypeRefs ValueType = "refs" // ordered links into a vocabulary
)

// IsValid returns true for every known value type.
func (t ValueType) IsValid() bool {
	switch t {
	case ValueTypeInt, ValueTypeTxt, ValueTypeNum, ValueTypeTS, ValueTypeTbl, ValueTypeRef, ValueTypeRefs:
		return true
	default:
		return false
	}
}

// IsGeneric reports whether values of this type live in the generic
// site_attribute_values store.
func (t ValueType) IsGeneric() bool {
	switch t {
	case ValueTypeInt, ValueTypeTxt, ValueTypeNum, ValueTypeTS:
		return true
	default:
		return false
	}
}

// DefaultAttributeScope is the scope of attributes attached to sites.
const DefaultAttributeScope = "site"

// AttributeDefinition is the registered metadata of one EAV attribute.
// Its ValueType never changes once created.
type AttributeDefinition struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayText string    `json:"display_text"`
	Description string    `json:"description"`
	ValueType   ValueType `json:"value_type"`
	Scope       string    `json:"scope"`
}

// SiteAttributes is one site's resolved attribute values keyed by attribute name.
type SiteAttributes struct {
	SiteID int64             `json:"site_id"`
	Values map[string]string `json:"values"`
}

// CatalogPage is one page of a project's attribute catalog.
type CatalogPage struct {
	ProjectID  int64                  `json:"project_id"`
	Attributes []*AttributeDefinition `json:"attributes"`
	Sites      []SiteAttributes       `json:"sites"`
	Total      int64                  `json:"total"`
	Offset     int                    `json:"offset"`
	Limit      int                    `json:"limit"`
}
