package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sprakbanken/karp-s/internal/schema"
)

// catalogueFile is the on-disk shape of the global field catalogue.
type catalogueFile struct {
	Fields []fieldYAML `yaml:"fields"`
}

type fieldYAML struct {
	Name       string               `yaml:"name"`
	Type       string               `yaml:"type"`
	Collection bool                 `yaml:"collection"`
	Label      string               `yaml:"label"`
	Fields     map[string]fieldYAML `yaml:"fields"`
}

func (f fieldYAML) toFieldDef() *schema.FieldDef {
	def := &schema.FieldDef{
		Name:       f.Name,
		Type:       schema.FieldType(f.Type),
		Collection: f.Collection,
		Label:      schema.PlainLabel(f.Label),
	}
	if len(f.Fields) > 0 {
		def.Fields = make(map[string]*schema.FieldDef, len(f.Fields))
		for name, sub := range f.Fields {
			def.Fields[name] = sub.toFieldDef()
		}
	}
	return def
}

// LoadCatalogue reads the global field catalogue from a single YAML
// file.
func LoadCatalogue(path string) (*schema.Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read catalogue: %w", err)
	}
	var cf catalogueFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("config: parse catalogue: %w", err)
	}
	fields := make([]*schema.FieldDef, len(cf.Fields))
	for i, f := range cf.Fields {
		fields[i] = f.toFieldDef()
	}
	return schema.NewCatalogue(fields), nil
}

// resourceFile is the on-disk shape of one resource descriptor.
type resourceFile struct {
	ResourceID    string          `yaml:"resource_id"`
	Label         string          `yaml:"label"`
	Description   string          `yaml:"description"`
	Fields        []resourceField `yaml:"fields"`
	EntryWord     entryWordYAML   `yaml:"entry_word"`
	Updated       int64           `yaml:"updated"`
	Size          int             `yaml:"size"`
	Link          string          `yaml:"link"`
	Tags          []string        `yaml:"tags"`
	LimitedAccess bool            `yaml:"limited_access"`
}

type resourceField struct {
	Name    string `yaml:"name"`
	Primary bool   `yaml:"primary"`
}

type entryWordYAML struct {
	Field       string `yaml:"field"`
	Description string `yaml:"description"`
}

// LoadResources globs every "*.yaml" file in dir and parses it as a
// resource descriptor. A single resource may be loaded by name via
// resourceID; an empty resourceID loads every resource in the
// directory.
func LoadResources(dir, resourceID string) ([]*schema.ResourceConfig, error) {
	pattern := "*.yaml"
	if resourceID != "" {
		pattern = resourceID + ".yaml"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("config: glob resources: %w", err)
	}

	resources := make([]*schema.ResourceConfig, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read resource %s: %w", path, err)
		}
		var rf resourceFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("config: parse resource %s: %w", path, err)
		}

		fields := make([]schema.ResourceField, len(rf.Fields))
		for i, f := range rf.Fields {
			fields[i] = schema.ResourceField{Name: f.Name, Primary: f.Primary}
		}

		resources = append(resources, &schema.ResourceConfig{
			ResourceID:  rf.ResourceID,
			Fields:      fields,
			Label:       schema.PlainLabel(rf.Label),
			Description: rf.Description,
			EntryWord: schema.EntryWordRef{
				Field:       rf.EntryWord.Field,
				Description: schema.PlainLabel(rf.EntryWord.Description),
			},
			Updated:       rf.Updated,
			Size:          rf.Size,
			Link:          rf.Link,
			Tags:          rf.Tags,
			LimitedAccess: rf.LimitedAccess,
		})
	}
	return resources, nil
}
