package schema

import "fmt"

// Catalogue is the global field catalogue: a mapping from field name to its
// descriptor, shared read-only by every resource.
type Catalogue struct {
	fields map[string]*FieldDef
}

// NewCatalogue builds a Catalogue from a set of field descriptors.
func NewCatalogue(fields []*FieldDef) *Catalogue {
	c := &Catalogue{fields: make(map[string]*FieldDef, len(fields))}
	for _, f := range fields {
		c.fields[f.Name] = f
	}
	return c
}

// Get returns the descriptor for a field name, or nil if unknown.
func (c *Catalogue) Get(name string) *FieldDef {
	return c.fields[name]
}

// Fields returns every field descriptor in the catalogue.
func (c *Catalogue) Fields() []*FieldDef {
	out := make([]*FieldDef, 0, len(c.fields))
	for _, f := range c.fields {
		out = append(out, f)
	}
	return out
}

// Validate enforces the catalogue-level invariants: every field name
// referenced by any resource resolves in the catalogue, a table field's
// sub-fields are flat (depth <= 1), and each resource's entry-word field
// is one of its declared fields.
func (c *Catalogue) Validate(resources []*ResourceConfig) error {
	for name, f := range c.fields {
		if f.Type == FieldTable {
			for subName, sub := range f.Fields {
				if sub.Type == FieldTable {
					return fmt.Errorf("field %q: sub-field %q cannot itself be a table (depth > 1)", name, subName)
				}
			}
		}
	}

	for _, rc := range resources {
		for _, rf := range rc.Fields {
			if c.Get(rf.Name) == nil {
				return fmt.Errorf("resource %q: field %q not found in global catalogue", rc.ResourceID, rf.Name)
			}
		}
		if rc.EntryWord.Field != "" && !rc.HasField(rc.EntryWord.Field) {
			return fmt.Errorf("resource %q: entry_word field %q is not one of its declared fields", rc.ResourceID, rc.EntryWord.Field)
		}
	}
	return nil
}

// indexResources populates each field's derived ResourceIDs list from the
// given resources. Not authoritative; purely a convenience index.
func (c *Catalogue) indexResources(resources []*ResourceConfig) {
	seen := make(map[string]map[string]bool)
	for _, rc := range resources {
		for _, rf := range rc.Fields {
			f := c.fields[rf.Name]
			if f == nil {
				continue
			}
			if seen[rf.Name] == nil {
				seen[rf.Name] = make(map[string]bool)
			}
			if !seen[rf.Name][rc.ResourceID] {
				seen[rf.Name][rc.ResourceID] = true
				f.ResourceIDs = append(f.ResourceIDs, rc.ResourceID)
			}
		}
	}
}

// ResolveFieldName normalises the virtual field "entry_word" to the
// resource-specific field it aliases. Any other field name passes through
// unchanged. Must run before type lookup in the catalogue.
func ResolveFieldName(rc *ResourceConfig, field string) string {
	if field == "entry_word" {
		return rc.EntryWord.Field
	}
	return field
}
