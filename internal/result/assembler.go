package result

import (
	"sort"

	"github.com/sprakbanken/karp-s/internal/karpdb"
)

// AssembleSearch zips each contributing resource's declared field order
// with its decoded row values into hits, concatenated in resource order
// and truncated at the caller's requested size.
func AssembleSearch(order []string, fieldsByResource map[string][]string, results map[string]*karpdb.PlanResult, counts map[string]int, size int) SearchResult {
	sr := SearchResult{
		ResourceHits: make(map[string]int, len(order)),
	}
	for _, id := range order {
		count := counts[id]
		sr.ResourceHits[id] = count
		sr.Total += count
		sr.ResourceOrder = append(sr.ResourceOrder, id)

		pr := results[id]
		if pr == nil {
			continue
		}
		for _, row := range pr.Rows {
			if len(sr.Hits) >= size {
				return sr
			}
			entry := make(map[string]any, len(pr.Columns))
			for i, col := range pr.Columns {
				entry[col] = row[i]
			}
			sr.Hits = append(sr.Hits, Hit{Entry: entry, ResourceID: id})
		}
	}
	return sr
}

// pivotKey identifies one (explode_field, cell_field, explode_value)
// triple: the dynamic pivot column observed in at least one row.
type pivotKey struct {
	explodeField string
	cellField    string
	explodeValue string
}

// AssembleCount builds headers and the pivoted table from the
// aggregation planner's decoded rows. compile names the group-by
// dimensions (in order); explodeField/cellField name the pivot column
// spec; rows is the outer level's decoded [][]any (compile values
// followed by the entry_data payload); grandTotalRows is the separate
// grand-totals aggregation's decoded rows (empty compile, keyed by
// resource_id).
func AssembleCount(compile []string, explodeField, cellField string, rows [][]any, grandTotalRows [][]any) CountResult {
	keys, perRowCells := discoverPivotKeys(explodeField, cellField, rows)
	sortPivotKeys(keys)

	headers := make([]any, 0, len(compile)+1+len(keys))
	for _, f := range compile {
		headers = append(headers, Header{Type: "compile", ColumnField: f})
	}
	headers = append(headers, Header{Type: "total"})
	for _, k := range keys {
		headers = append(headers, ValueHeader{
			Header:      Header{Type: "count"},
			HeaderField: k.explodeField,
			HeaderValue: k.explodeValue,
		})
	}

	table := make([]Row, 0, len(rows))
	for i, row := range rows {
		// row is [count, compile_0, ..., compile_n-1, entry_data]; the
		// leading total count and trailing payload aren't part of Values.
		r := Row{Values: row[1 : len(row)-1]}
		cellsByKey := perRowCells[i]
		for _, k := range keys {
			if c, ok := cellsByKey[k]; ok {
				r.Cells = append(r.Cells, c)
			} else {
				r.Cells = append(r.Cells, zeroCell(cellField))
			}
		}
		table = append(table, r)
	}

	_, totalCells := discoverPivotKeys(explodeField, cellField, grandTotalRows)
	totalRow := TotalRow{Key: "-"}
	if len(totalCells) > 0 {
		for _, k := range keys {
			if c, ok := totalCells[0][k]; ok {
				totalRow.Cells = append(totalRow.Cells, c)
			} else {
				totalRow.Cells = append(totalRow.Cells, zeroCell(cellField))
			}
		}
	}

	return CountResult{Headers: headers, Table: table, Total: totalRow}
}

func zeroCell(cellField string) Cell {
	if cellField == "_count" {
		return Cell{Count: 0}
	}
	return Cell{Count: 0, Values: []CellValue{}}
}

// discoverPivotKeys parses each row's entry_data payload (the last
// column) into per-row cells keyed by pivot key, and returns the full
// set of distinct keys observed across all rows.
func discoverPivotKeys(explodeField, cellField string, rows [][]any) ([]pivotKey, []map[pivotKey]Cell) {
	seen := make(map[pivotKey]bool)
	var keys []pivotKey
	perRow := make([]map[pivotKey]Cell, len(rows))

	for i, row := range rows {
		if len(row) == 0 {
			perRow[i] = map[pivotKey]Cell{}
			continue
		}
		payload, _ := row[len(row)-1].([]map[string]any)
		cells := make(map[pivotKey]Cell, len(payload))
		for _, elem := range payload {
			explodeValue := toStringValue(elem[explodeField])
			count := toIntValue(elem["count"])
			k := pivotKey{explodeField: explodeField, cellField: cellField, explodeValue: explodeValue}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			cell := Cell{Count: count}
			if cellField != "_count" {
				if nested, ok := elem[cellField].([]map[string]any); ok {
					for _, n := range nested {
						cell.Values = append(cell.Values, CellValue{
							Value: toStringValue(n[cellField]),
							Count: toIntValue(n["count"]),
						})
					}
					sortCellValues(cell.Values)
				}
			}
			cells[k] = cell
		}
		perRow[i] = cells
	}
	return keys, perRow
}

func toStringValue(v any) string {
	s, _ := v.(string)
	return s
}

func toIntValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func sortPivotKeys(keys []pivotKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.explodeField != b.explodeField {
			return Less(a.explodeField, b.explodeField)
		}
		if a.cellField != b.cellField {
			return Less(a.cellField, b.cellField)
		}
		return Less(a.explodeValue, b.explodeValue)
	})
}

func sortCellValues(values []CellValue) {
	sort.SliceStable(values, func(i, j int) bool {
		return Less(values[i].Value, values[j].Value)
	})
}
