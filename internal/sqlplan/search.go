package sqlplan

import (
	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/karpql"
	"github.com/sprakbanken/karp-s/internal/predicate"
	"github.com/sprakbanken/karp-s/internal/schema"
)

// SortField is one requested ORDER BY term before resource-specific
// resolution (e.g. "_default" substitution).
type SortField struct {
	Field string
	Desc  bool
}

// BuildSearch compiles one Query per resource capable of answering it.
// Resources referencing a field they don't declare are silently dropped
// from the result set (the "schema firewall"), not reported as errors.
// selection defaults to every declared field when empty or containing
// "*"; it may additionally request the virtual "resource_id" and
// "entry_word" selectors.
func BuildSearch(catalogue *schema.Catalogue, resources []*schema.ResourceConfig, q *karpql.Query, selection []string, sort []SortField) ([]*schema.ResourceConfig, []*Query, error) {
	if len(selection) == 0 {
		selection = []string{"*"}
	}

	var outResources []*schema.ResourceConfig
	var outQueries []*Query

	for _, rc := range resources {
		sel := dataSelection(rc, selection)
		boolOp, clauses, err := predicate.Compile(catalogue, rc, q)
		if err != nil {
			return nil, nil, err
		}

		dropped := false
		for _, c := range clauses {
			if !rc.HasField(c.Field) {
				dropped = true
				break
			}
		}
		if dropped {
			continue
		}

		sqlQ := Select(toSelectors(sel)).FromTable(rc.ResourceID)
		if len(clauses) > 0 {
			sqlQ.Op(string(boolOp))
		}

		for _, rf := range rc.Fields {
			def := catalogue.Get(rf.Name)
			if def == nil {
				continue
			}
			if def.Collection {
				where := ""
				for _, c := range clauses {
					if c.Field == rf.Name {
						where = c.Fragment
					}
				}
				alias := aliasFor(sel, rf.Name)
				_, selected := findSelector(sel, rf.Name)
				if selected || where != "" {
					sqlQ.Join(rf.Name, alias, where)
				}
			}
			for _, c := range clauses {
				if c.Field == rf.Name && c.Fragment != "" {
					if def.Collection {
						continue
					}
					sqlQ.Where(c.Fragment)
				}
			}
		}

		if len(sort) > 0 {
			resolved, err := resolveSort(rc, sort)
			if err != nil {
				return nil, nil, err
			}
			sqlQ.OrderBy(resolved)
		}

		outResources = append(outResources, rc)
		outQueries = append(outQueries, sqlQ)
	}

	return outResources, outQueries, nil
}

func resolveSort(rc *schema.ResourceConfig, sort []SortField) ([]OrderField, error) {
	if sort[0].Field == "_default" {
		return []OrderField{{Field: rc.EntryWord.Field, Desc: sort[0].Desc}}, nil
	}
	for _, s := range sort {
		if !rc.HasField(s.Field) {
			return nil, apperr.NewUser("sort by %q is not supported in %q", s.Field, rc.ResourceID)
		}
	}
	out := make([]OrderField, len(sort))
	for i, s := range sort {
		out[i] = OrderField{Field: s.Field, Desc: s.Desc}
	}
	return out, nil
}

// dataSelectionEntry is one resolved selection entry: a column (or
// literal/alias expression) and its optional output alias.
type dataSelectionEntry struct {
	Column string
	Alias  string
}

func dataSelection(rc *schema.ResourceConfig, selection []string) []dataSelectionEntry {
	var sel []dataSelectionEntry
	wantsAll := false
	for _, s := range selection {
		if s == "*" {
			wantsAll = true
		}
	}
	if wantsAll {
		for _, f := range rc.FieldNames() {
			sel = append(sel, dataSelectionEntry{Column: f})
		}
	} else {
		for _, s := range selection {
			if s == "resource_id" || s == "entry_word" {
				continue
			}
			sel = append(sel, dataSelectionEntry{Column: s})
		}
	}

	for _, s := range selection {
		if s == "resource_id" {
			sel = append(sel, dataSelectionEntry{Column: "'" + rc.ResourceID + "'", Alias: "resource_id"})
		}
		if s == "entry_word" {
			sel = append(sel, dataSelectionEntry{Column: rc.EntryWord.Field, Alias: "entry_word"})
		}
	}
	return sel
}

func toSelectors(sel []dataSelectionEntry) []Selector {
	out := make([]Selector, len(sel))
	for i, s := range sel {
		out[i] = Selector{Value: s.Column, Alias: s.Alias}
	}
	return out
}

func findSelector(sel []dataSelectionEntry, column string) (dataSelectionEntry, bool) {
	for _, s := range sel {
		if s.Column == column {
			return s, true
		}
	}
	return dataSelectionEntry{}, false
}

func aliasFor(sel []dataSelectionEntry, column string) string {
	e, ok := findSelector(sel, column)
	if !ok {
		return ""
	}
	return e.Alias
}
