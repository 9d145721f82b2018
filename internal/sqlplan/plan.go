// Package sqlplan builds the per-resource relational query: a single
// SELECT against a concrete table, or a UNION ALL over nested queries,
// with collection-field joins materialised as CTEs. A Query is built
// once, rendered once (via ToString), and then discarded.
package sqlplan

import (
	"strconv"
	"strings"
)

// CollectionSeparator is the U+001F delimiter used by GROUP_CONCAT to
// join collection-field values within one cell.
const CollectionSeparator = ""

// Selector is one selected expression: Value AS Alias. Alias may be
// empty, in which case the expression is selected unaliased.
type Selector struct {
	Value string
	Alias string
}

// OrderField is one ORDER BY term.
type OrderField struct {
	Field string
	Desc  bool
}

// join captures one collection-field join: an optional alias for its
// data column and an optional predicate fragment for EXISTS filtering.
type join struct {
	alias string
	where string
}

// InnerQuery pairs a nested Query with the resource it was built from,
// nil when the nested query is over a derived table rather than a
// concrete resource table.
type InnerQuery struct {
	Resource any
	Query    *Query
}

// Query is the fluent builder mirroring the source system's query
// object: build it up with the chained setters (FromTable, Join, Where,
// GroupBy, OrderBy, ...), then call ToString to render the final SQL text.
type Query struct {
	selection []Selector
	table     string

	op      string
	clauses []string

	joins     map[string]join
	joinOrder []string

	groupBy []string
	orderBy []OrderField

	from int
	size *int

	innerQueries []InnerQuery
}

// Select begins a new Query with the given selection list.
func Select(selection []Selector) *Query {
	return &Query{
		selection: selection,
		op:        "and",
		joins:     make(map[string]join),
	}
}

func (q *Query) FromTable(table string) *Query {
	q.table = table
	return q
}

// FromInnerQueries sets the query to select from a UNION ALL of nested
// queries instead of a concrete table.
func (q *Query) FromInnerQueries(inner []InnerQuery) *Query {
	q.innerQueries = inner
	return q
}

// Join registers a collection-field join. field names the child table's
// field; alias overrides the data column's output name (defaults to
// field); where, if non-empty, is the predicate fragment filtering the
// child rows, triggering an EXISTS clause in addition to the LEFT JOIN.
func (q *Query) Join(field, alias, where string) *Query {
	if _, ok := q.joins[field]; !ok {
		q.joinOrder = append(q.joinOrder, field)
	}
	q.joins[field] = join{alias: alias, where: where}
	return q
}

func (q *Query) GroupBy(fields []string) *Query {
	q.groupBy = fields
	return q
}

func (q *Query) OrderBy(order []OrderField) *Query {
	q.orderBy = order
	return q
}

func (q *Query) Op(op string) *Query {
	q.op = op
	return q
}

func (q *Query) Where(clause string) *Query {
	q.clauses = append(q.clauses, clause)
	return q
}

func (q *Query) FromPage(page int) *Query {
	q.from = page
	return q
}

func (q *Query) AddSize(size int) *Query {
	q.size = &size
	return q
}

// getCTEs renders the CTE pair for one join: the predicate-filtering
// "{field}__where" (only when the join has a predicate) and the
// data-fetching "{field}__data".
func (q *Query) getCTEs(field string) (whereCTE string, dataCTE string) {
	j := q.joins[field]
	if j.where != "" {
		inner := Select([]Selector{{Value: "__parent_id"}}).
			FromTable(q.table + "__" + field).
			Where(j.where).
			GroupBy([]string{"__parent_id"})
		sql, _ := inner.ToString(false, true)
		whereCTE = field + "__where AS (" + sql + ")"
	}

	alias := j.alias
	if alias == "" {
		alias = field
	}
	dataInner := Select([]Selector{
		{Value: "__parent_id"},
		{Value: "GROUP_CONCAT(value SEPARATOR '" + CollectionSeparator + "')", Alias: alias},
	}).FromTable(q.table + "__" + field).GroupBy([]string{"__parent_id"})
	sql, _ := dataInner.ToString(false, true)
	dataCTE = field + "__data AS (" + sql + ")"
	return whereCTE, dataCTE
}

type cteEntry struct {
	whereCTE string
	dataCTE  string
}

// collectCTEs gathers this query's own join CTEs plus those of every
// nested inner query, recursively.
func (q *Query) collectCTEs() []cteEntry {
	var out []cteEntry
	for _, field := range q.joinOrder {
		w, d := q.getCTEs(field)
		out = append(out, cteEntry{whereCTE: w, dataCTE: d})
	}
	for _, iq := range q.innerQueries {
		out = append(out, iq.Query.collectCTEs()...)
	}
	return out
}

// ToString renders the query. When paged && topLevel, the second
// return value is the count-only rendering of the same plan; otherwise
// it is empty. topLevel must be false for nested/inner queries: they
// never carry their own CTE preamble or LIMIT/OFFSET. An ORDER BY set on
// a query is rendered whether or not it is top-level.
func (q *Query) ToString(paged bool, topLevel bool) (string, string) {
	dataSQL := q.render(topLevel, false)
	var countSQL string
	if paged && topLevel {
		countSQL = q.render(topLevel, true)
	}
	return dataSQL, countSQL
}

func (q *Query) render(topLevel bool, count bool) string {
	var s strings.Builder

	if topLevel {
		ctes := q.collectCTEs()
		var strCTEs []string
		for _, c := range ctes {
			if c.whereCTE != "" {
				strCTEs = append(strCTEs, c.whereCTE)
			}
			if !count {
				strCTEs = append(strCTEs, c.dataCTE)
			}
		}
		if len(strCTEs) > 0 {
			s.WriteString("WITH ")
			s.WriteString(strings.Join(strCTEs, ", "))
			s.WriteString(" ")
		}
	}

	var selection string
	if count {
		selection = "COUNT(*)"
	} else {
		selection = q.renderSelection()
	}

	switch {
	case q.table != "":
		s.WriteString("SELECT ")
		s.WriteString(selection)
		s.WriteString(" FROM `")
		s.WriteString(q.table)
		s.WriteString("`")
	case len(q.innerQueries) > 0:
		parts := make([]string, len(q.innerQueries))
		for i, iq := range q.innerQueries {
			parts[i] = iq.Query.render(false, false)
		}
		s.WriteString("SELECT ")
		s.WriteString(selection)
		s.WriteString(" FROM (")
		s.WriteString(strings.Join(parts, " UNION ALL "))
		s.WriteString(") as innerq")
	default:
		panic("sqlplan: query has neither a table nor inner queries")
	}

	clauses := append([]string(nil), q.clauses...)

	if len(q.joinOrder) > 0 {
		tablePrefix := ""
		if q.table != "" {
			tablePrefix = q.table + "."
		}
		for _, field := range q.joinOrder {
			j := q.joins[field]
			name := j.alias
			if name == "" {
				name = field
			}
			if j.where != "" {
				clauses = append(clauses, "EXISTS (SELECT 1 FROM `"+name+"__where` WHERE "+tablePrefix+"__id = __parent_id)")
			}
			if !count {
				s.WriteString(" LEFT JOIN `")
				s.WriteString(name)
				s.WriteString("__data` ON `")
				s.WriteString(name)
				s.WriteString("__data`.__parent_id = ")
				s.WriteString(tablePrefix)
				s.WriteString("__id")
			}
		}
	}

	if len(clauses) > 0 {
		s.WriteString(" WHERE ")
		s.WriteString(strings.Join(clauses, " "+q.op+" "))
	}

	if len(q.groupBy) > 0 {
		s.WriteString(" GROUP BY ")
		quoted := make([]string, len(q.groupBy))
		for i, f := range q.groupBy {
			quoted[i] = "`" + f + "`"
		}
		s.WriteString(strings.Join(quoted, ", "))
	}

	if !count && len(q.orderBy) > 0 {
		s.WriteString(" ORDER BY ")
		parts := make([]string, len(q.orderBy))
		for i, o := range q.orderBy {
			term := "`" + o.Field + "`"
			if o.Desc {
				term += " DESC"
			}
			parts[i] = term
		}
		s.WriteString(strings.Join(parts, ", "))
	}

	if !count && topLevel && q.size != nil {
		s.WriteString(" LIMIT ")
		s.WriteString(strconv.Itoa(*q.size))
		s.WriteString(" OFFSET ")
		s.WriteString(strconv.Itoa(q.from))
	}

	return s.String()
}

// renderSelection renders the SELECT list, applying backtick quoting to
// bare column references while passing function-call expressions and
// string literals through verbatim.
func (q *Query) renderSelection() string {
	if len(q.selection) == 0 {
		return "__id"
	}
	parts := make([]string, 0, len(q.selection))
	for _, sel := range q.selection {
		v := sel.Value
		var rendered string
		if isPassthroughExpr(v) {
			rendered = v
		} else {
			rendered = "`" + v + "`"
		}
		if sel.Alias != "" {
			rendered += " AS " + sel.Alias
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, ", ")
}

func isPassthroughExpr(v string) bool {
	if v == "" {
		return false
	}
	switch v[0] {
	case '\'', '"':
		return true
	}
	for _, prefix := range []string{"GROUP_CONCAT", "COUNT", "CONCAT", "SUM"} {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}
