package aggregate

import (
	"strings"
	"testing"

	"github.com/sprakbanken/karp-s/internal/sqlplan"
)

func resourceQuery(resourceID string) sqlplan.InnerQuery {
	q := sqlplan.Select([]sqlplan.Selector{
		{Value: "'" + resourceID + "'", Alias: "resource_id"},
		{Value: "pos"},
	}).FromTable(resourceID)
	return sqlplan.InnerQuery{Query: q}
}

func TestBuildDefaultSortOrdersByCompile(t *testing.T) {
	queries := []sqlplan.InnerQuery{resourceQuery("saldo"), resourceQuery("swesaurus")}
	q, err := Build(queries, []string{"pos"}, CountCell{ExplodeField: "resource_id", CellField: "_count"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sql, _ := q.ToString(false, true)
	if !strings.Contains(sql, "GROUP BY `pos`") {
		t.Errorf("sql missing outer GROUP BY pos: %s", sql)
	}
	if !strings.Contains(sql, "ORDER BY `pos`") {
		t.Errorf("sql missing default ORDER BY pos: %s", sql)
	}
}

func TestBuildRejectsSortOutsideCompile(t *testing.T) {
	queries := []sqlplan.InnerQuery{resourceQuery("saldo")}
	_, err := Build(queries, []string{"pos"}, CountCell{ExplodeField: "resource_id", CellField: "_count"},
		[]Sort{{Field: "freq", Desc: false}})
	if err == nil {
		t.Fatal("expected error sorting by a field outside compile")
	}
}

func TestGrandTotalRendersWithoutCompileDimensions(t *testing.T) {
	queries := []sqlplan.InnerQuery{resourceQuery("saldo"), resourceQuery("swesaurus")}
	q := GrandTotal(queries)
	sql, _ := q.ToString(false, true)
	if !strings.HasPrefix(sql, "SELECT") {
		t.Errorf("expected a rendered SELECT, got: %s", sql)
	}
	if strings.Contains(sql, "ORDER BY") {
		t.Errorf("grand total has no compile fields to sort by, got: %s", sql)
	}
}
