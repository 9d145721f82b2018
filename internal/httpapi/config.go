package httpapi

import "github.com/sprakbanken/karp-s/internal/schema"

// configResponse describes the installed catalogue and resources: the
// /config endpoint's response body.
type configResponse struct {
	Fields    []fieldInfo    `json:"fields"`
	Resources []resourceInfo `json:"resources"`
}

type fieldInfo struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Collection bool        `json:"collection,omitempty"`
	Label      string      `json:"label,omitempty"`
	Fields     []fieldInfo `json:"fields,omitempty"`
}

type resourceInfo struct {
	ResourceID    string   `json:"resourceId"`
	Label         string   `json:"label"`
	Description   string   `json:"description,omitempty"`
	EntryWord     string   `json:"entryWord"`
	Updated       int64    `json:"updated,omitempty"`
	Size          int      `json:"size,omitempty"`
	Link          string   `json:"link,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	LimitedAccess bool     `json:"limitedAccess,omitempty"`
	Fields        []string `json:"fields"`
}

func buildConfigResponse(cache *schema.Cache) configResponse {
	cat := cache.Catalogue()
	fields := make([]fieldInfo, 0, len(cat.Fields()))
	for _, f := range cat.Fields() {
		fields = append(fields, fieldInfoFrom(f))
	}

	resources := make([]resourceInfo, 0, cache.ResourceCount())
	for _, rc := range cache.Resources() {
		resources = append(resources, resourceInfo{
			ResourceID:    rc.ResourceID,
			Label:         rc.Label.String("sv"),
			Description:   rc.Description,
			EntryWord:     rc.EntryWord.Field,
			Updated:       rc.Updated,
			Size:          rc.Size,
			Link:          rc.Link,
			Tags:          rc.Tags,
			LimitedAccess: rc.LimitedAccess,
			Fields:        rc.FieldNames(),
		})
	}

	return configResponse{Fields: fields, Resources: resources}
}

func fieldInfoFrom(f *schema.FieldDef) fieldInfo {
	info := fieldInfo{
		Name:       f.Name,
		Type:       string(f.Type),
		Collection: f.Collection,
		Label:      f.Label.String("sv"),
	}
	for _, sub := range f.Fields {
		info.Fields = append(info.Fields, fieldInfoFrom(sub))
	}
	return info
}
