// Package schema is the in-memory representation of the global field
// catalogue and the per-resource field lists, including collection/table
// flags and each resource's designated entry-word field.
package schema

import "strings"

// QuoteIdent quotes a bare SQL identifier for the MySQL/MariaDB dialect,
// escaping an embedded backtick by doubling it.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// FieldType classifies a field for predicate compilation and rendering.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldInteger FieldType = "integer"
	FieldFloat   FieldType = "float"
	FieldTable   FieldType = "table"
)

// IsNumeric reports whether the field requires the epsilon-tolerant
// numeric comparison treatment instead of quoted textual matching.
func (t FieldType) IsNumeric() bool {
	return t == FieldInteger || t == FieldFloat
}

// Label is either a plain string or a mapping from language code to
// string ("MultiLang" in the source system).
type Label struct {
	Plain     string
	MultiLang map[string]string
}

func PlainLabel(s string) Label { return Label{Plain: s} }

// String renders the label for a given language, falling back to Plain
// when there is no translation for lang.
func (l Label) String(lang string) string {
	if l.MultiLang == nil {
		return l.Plain
	}
	if v, ok := l.MultiLang[lang]; ok {
		return v
	}
	return l.Plain
}

// FieldDef describes a single field in the global catalogue.
type FieldDef struct {
	Name       string
	Type       FieldType
	Collection bool
	Label      Label
	// Fields holds sub-field descriptors when Type == FieldTable. Depth is
	// always <= 1: sub-fields cannot themselves be tables.
	Fields map[string]*FieldDef
	// ResourceIDs is derived (populated by Catalogue.indexResources), not
	// authoritative — it lists the resources in which this field appears.
	ResourceIDs []string
}

// ChildTableName returns the name of the child table backing a collection
// field for the given resource: "{resource_id}__{field}", with columns
// (__parent_id, value).
func ChildTableName(resourceID, field string) string {
	return resourceID + "__" + field
}

// ResourceField is one entry in a resource's ordered field list.
type ResourceField struct {
	Name    string
	Primary bool
}

// EntryWordRef names which of the resource's fields acts as the
// resource-specific alias of the virtual field "entryWord".
type EntryWordRef struct {
	Field       string
	Description Label
}

// ResourceConfig describes one lexical resource (lexicon).
type ResourceConfig struct {
	ResourceID    string
	Fields        []ResourceField
	Label         Label
	Description   string
	EntryWord     EntryWordRef
	Updated       int64
	Size          int
	Link          string
	Tags          []string
	LimitedAccess bool

	// fieldSet indexes Fields by name for O(1) membership checks.
	fieldSet map[string]bool
}

// indexFields lazily builds fieldSet. Called by HasField/Validate.
func (r *ResourceConfig) indexFields() {
	if r.fieldSet != nil {
		return
	}
	r.fieldSet = make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		r.fieldSet[f.Name] = true
	}
}

// HasField reports whether the resource declares the given field name.
func (r *ResourceConfig) HasField(name string) bool {
	r.indexFields()
	return r.fieldSet[name]
}

// FieldNames returns the resource's declared field names in order.
func (r *ResourceConfig) FieldNames() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}
