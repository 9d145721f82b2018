package httpapi

import (
	"strings"

	"github.com/sprakbanken/karp-s/internal/aggregate"
	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/sqlplan"
)

// normalize rewrites the legacy camelCase virtual field names to their
// snake_case core equivalents. This happens only at the HTTP boundary;
// the core packages never see entryWord/resourceId.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "entryWord", "entry_word")
	s = strings.ReplaceAll(s, "resourceId", "resource_id")
	return s
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(normalize(raw), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSort implements the sort grammar: a bare "asc"/"desc" targets the
// "_default" sentinel; otherwise a comma-separated list of
// "field|order" or bare "field" (defaulting to asc) terms.
func parseSort(raw string) ([]sortField, error) {
	if raw == "" {
		raw = "asc"
	}
	if raw == "asc" || raw == "desc" {
		return []sortField{{Field: "_default", Desc: raw == "desc"}}, nil
	}

	var out []sortField
	for _, elem := range strings.Split(raw, ",") {
		parts := strings.SplitN(elem, "|", 2)
		if len(parts) == 2 {
			order := parts[1]
			if order != "asc" && order != "desc" {
				return nil, apperr.NewUser("unsupported sort order: %s", order)
			}
			field := parts[0]
			if field == "" {
				field = "_default"
			}
			out = append(out, sortField{Field: normalize(field), Desc: order == "desc"})
			continue
		}
		field := parts[0]
		if field == "" {
			field = "_default"
		}
		out = append(out, sortField{Field: normalize(field), Desc: false})
	}
	return out, nil
}

type sortField struct {
	Field string
	Desc  bool
}

func sortToSQLPlan(sorts []sortField) []sqlplan.SortField {
	out := make([]sqlplan.SortField, len(sorts))
	for i, s := range sorts {
		out[i] = sqlplan.SortField{Field: s.Field, Desc: s.Desc}
	}
	return out
}

func sortToAggregate(sorts []sortField) []aggregate.Sort {
	out := make([]aggregate.Sort, len(sorts))
	for i, s := range sorts {
		out[i] = aggregate.Sort{Field: s.Field, Desc: s.Desc}
	}
	return out
}

// parseColumns implements the "lhs=rhs" columns parameter, defaulting to
// resource_id=_count when omitted. Only the first comma-separated pair
// is used; any further pairs are ignored.
func parseColumns(raw string) (aggregate.CountCell, error) {
	if raw == "" {
		return aggregate.CountCell{ExplodeField: "resource_id", CellField: "_count"}, nil
	}
	normalized := normalize(raw)
	first := strings.Split(normalized, ",")[0]
	parts := strings.SplitN(first, "=", 2)
	if len(parts) != 2 {
		return aggregate.CountCell{}, apperr.NewUser("columns parameter is wrongly formatted")
	}
	return aggregate.CountCell{ExplodeField: parts[0], CellField: parts[1]}, nil
}
