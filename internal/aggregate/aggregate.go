// Package aggregate stacks the three-level pivot aggregation used by the
// count endpoint atop a per-resource union of search plans.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/sqlplan"
)

// CountCell names the explode/cell dimension pair for the count request:
// explode field's observed values become pivot columns; CellField =
// "_count" means "count occurrences", any other name collects that
// field's values instead.
type CountCell struct {
	ExplodeField string
	CellField    string
}

// Sort is one requested ORDER BY term on a compile field, or the
// "_default" sentinel requesting every compile field in its direction
// (ascending unless Desc is set).
type Sort struct {
	Field string
	Desc  bool
}

// Build stacks the innermost per-bucket COUNT(*), a middle regrouping
// that gathers each cell's JSON payload, and an outer collapse to one
// row per compile tuple, then attaches sorting.
func Build(queries []sqlplan.InnerQuery, compile []string, column CountCell, sort []Sort) (*sqlplan.Query, error) {
	innermostCompile := append(append([]string(nil), compile...), column.ExplodeField, cellOrCount(column))
	agg := inner(queries, innermostCompile, nil, true)

	middleCompile := append(append([]string(nil), compile...), column.ExplodeField)
	agg = inner([]sqlplan.InnerQuery{{Query: agg}}, middleCompile, []string{column.CellField}, column.CellField == "_count")

	final := inner([]sqlplan.InnerQuery{{Query: agg}}, compile, []string{column.ExplodeField, column.CellField}, false)

	if len(sort) == 0 || sort[0].Field == "_default" {
		desc := len(sort) > 0 && sort[0].Desc
		orderBy := make([]sqlplan.OrderField, len(compile))
		for i, f := range compile {
			orderBy[i] = sqlplan.OrderField{Field: f, Desc: desc}
		}
		final.OrderBy(orderBy)
		return final, nil
	}

	allowed := make(map[string]bool, len(compile))
	for _, f := range compile {
		allowed[f] = true
	}
	orderBy := make([]sqlplan.OrderField, len(sort))
	for i, s := range sort {
		if !allowed[s.Field] {
			return nil, apperr.NewUser("sort by %q is not supported with compile: %s", s.Field, strings.Join(compile, ", "))
		}
		orderBy[i] = sqlplan.OrderField{Field: s.Field, Desc: s.Desc}
	}
	final.OrderBy(orderBy)
	return final, nil
}

// GrandTotal builds the separate grand-totals aggregation: one row, the
// overall count across every resource, selected as (resource_id,
// _count) with no compile dimensions.
func GrandTotal(queries []sqlplan.InnerQuery) *sqlplan.Query {
	agg, _ := Build(queries, nil, CountCell{ExplodeField: "resource_id", CellField: "_count"}, nil)
	return agg
}

func cellOrCount(c CountCell) string {
	if c.CellField == "" {
		return "_count"
	}
	return c.CellField
}

// inner builds one level of the stack. compile is the group-by/selection
// dimension list (compile[last] == "_count" signals a pure-count level
// with no group-by); collect is the set of fields whose values get
// bundled into a JSON payload per cell at this level; innermost selects
// COUNT(*) instead of SUM(count).
func inner(queries []sqlplan.InnerQuery, compile []string, collect []string, innermost bool) *sqlplan.Query {
	var sel []sqlplan.Selector
	isCount := len(compile) > 0 && compile[len(compile)-1] == "_count"

	if isCount {
		// no count/sum column at this level; the columns pass through
		// ungrouped and the next level counts the rows with COUNT(*)
	} else if innermost {
		sel = append(sel, sqlplan.Selector{Value: "COUNT(*)", Alias: "count"})
	} else {
		sel = append(sel, sqlplan.Selector{Value: "SUM(count)", Alias: "count"})
	}

	for _, c := range compile {
		if c != "_count" {
			sel = append(sel, sqlplan.Selector{Value: c})
		}
	}

	if len(collect) > 0 {
		field := collect[0]
		var innerFields []string
		for _, f := range collect[1:] {
			if f != "_count" {
				innerFields = append(innerFields, fmt.Sprintf("'%s', `%s`", f, f))
			}
		}
		if field != "_count" {
			extra := ""
			if len(innerFields) > 0 {
				extra = "," + strings.Join(innerFields, ",")
			}
			expr := fmt.Sprintf("CONCAT('[', GROUP_CONCAT(JSON_OBJECT('%s', `%s`,'count', `count`%s)), ']')", field, field, extra)
			sel = append(sel, sqlplan.Selector{Value: expr, Alias: "`" + field + "`"})
		}
	}

	s := sqlplan.Select(sel).FromInnerQueries(queries)
	if !isCount {
		s.GroupBy(compile)
	}
	return s
}
