package karpdb

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/sqlplan"
)

// collectionSeparator matches sqlplan.CollectionSeparator: GROUP_CONCAT's
// U+001F join delimiter.
const collectionSeparator = sqlplan.CollectionSeparator

// PlanResult is the decoded result of one resource's plan: its column
// names (in select order) and its rows, or nil when the resource
// contributed no rows to this page.
type PlanResult struct {
	Columns []string
	Rows    [][]any
}

// DecodeOpts controls row post-processing for RunPagedSearches.
type DecodeOpts struct {
	// CollectionFields names columns whose scalar value must be split
	// on the collection separator into a slice.
	CollectionFields map[string]bool
	// IsAggregation enables aggregation-row decoding: the column past
	// EntryDataColumnIndex (0-based) is the pivot endpoint's JSON
	// payload column, requiring recursive decoding instead of a plain
	// scalar/collection value.
	IsAggregation        bool
	EntryDataColumnIndex int
	// EntryDataField is the pivot field inside the JSON payload whose
	// value, if a collection field, must itself be split.
	EntryDataField string
	// ColumnsParam is the original columns request, echoed in the user
	// error raised on GROUP_CONCAT-truncated JSON.
	ColumnsParam string
}

// RunSearches executes every plan without paging (used by the count
// endpoint, which does not itself paginate resources).
func (s *Session) RunSearches(ctx context.Context, queries []*sqlplan.Query, opts DecodeOpts) ([]*PlanResult, error) {
	results, _, err := s.runPaged(ctx, queries, 0, 0, false, opts)
	return results, err
}

// RunPagedSearches executes the cumulative cross-resource pagination
// algorithm: count-probe every plan (concurrently), then issue only the
// queries needed to fill [from, from+size), applying the per-resource
// offset solely to the first contributing resource.
func (s *Session) RunPagedSearches(ctx context.Context, queries []*sqlplan.Query, size, from int, opts DecodeOpts) ([]*PlanResult, []int, error) {
	return s.runPaged(ctx, queries, size, from, true, opts)
}

func (s *Session) runPaged(ctx context.Context, queries []*sqlplan.Query, size, from int, paged bool, opts DecodeOpts) ([]*PlanResult, []int, error) {
	counts := make([]int, len(queries))
	if paged {
		g, gctx := errgroup.WithContext(ctx)
		for i, q := range queries {
			i, q := i, q
			g.Go(func() error {
				n, err := s.CountOnly(gctx, q)
				if err != nil {
					return err
				}
				counts[i] = n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}

	results := make([]*PlanResult, len(queries))
	if !paged {
		for i, q := range queries {
			dataSQL, _ := q.ToString(false, true)
			cols, rows, err := s.fetchAll(ctx, dataSQL)
			if err != nil {
				return nil, nil, err
			}
			decoded, err := decodeRows(cols, rows, opts)
			if err != nil {
				return nil, nil, err
			}
			results[i] = &PlanResult{Columns: cols, Rows: decoded}
		}
		return results, counts, nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if from > total {
		return nil, nil, apperr.NewUser("from %d is past the end of the result set (%d hits)", from, total)
	}

	pages := planPages(counts, size, from)
	for i, pg := range pages {
		if !pg.fetch {
			continue
		}
		dataSQL, _ := queries[i].FromPage(pg.from).AddSize(pg.size).ToString(true, true)
		cols, rows, err := s.fetchAll(ctx, dataSQL)
		if err != nil {
			return nil, nil, err
		}
		decoded, err := decodeRows(cols, rows, opts)
		if err != nil {
			return nil, nil, err
		}
		results[i] = &PlanResult{Columns: cols, Rows: decoded}
	}
	return results, counts, nil
}

// page describes one resource's contribution to a page: whether it
// contributes any rows at all, and if so, its per-resource from/size.
type page struct {
	fetch bool
	from  int
	size  int
}

// planPages implements the cumulative cross-resource pagination
// algorithm: given each resource's total hit count (in a fixed resource
// order) and the caller's requested from/size window, it decides which
// resources contribute rows and with what per-resource offset/limit.
// Only the first contributing resource ever receives a nonzero offset;
// every resource after it starts at its own row zero.
func planPages(counts []int, size, from int) []page {
	pages := make([]page, len(counts))
	rowCount := 0
	totalCount := 0
	queryFrom := from
	for i, count := range counts {
		totalCount += count
		querySize := min3(totalCount-queryFrom, count, max0(size-rowCount))
		if querySize <= 0 {
			continue
		}
		thisFrom := queryFrom
		if queryFrom != 0 {
			thisFrom = count - (totalCount - queryFrom)
		}
		pages[i] = page{fetch: true, from: thisFrom, size: querySize}
		rowCount += querySize
		queryFrom = 0
	}
	return pages
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// decodeRows post-processes raw scanned values per column: splitting
// collection-field values on the collection separator, and recursively
// JSON-decoding the aggregation endpoint's trailing entry-data column.
func decodeRows(columns []string, rows [][]any, opts DecodeOpts) ([][]any, error) {
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		newRow := make([]any, len(columns))
		for i, col := range columns {
			v := row[i]
			switch {
			case opts.IsAggregation && i > opts.EntryDataColumnIndex:
				decoded, err := decodeEntryData(v, opts)
				if err != nil {
					return nil, err
				}
				newRow[i] = decoded
			case col == "count":
				n, err := toInt(v)
				if err != nil {
					return nil, err
				}
				newRow[i] = n
			case opts.CollectionFields[col]:
				newRow[i] = splitCollection(v)
			default:
				newRow[i] = v
			}
		}
		out = append(out, newRow)
	}
	return out, nil
}

func splitCollection(v any) []string {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	return strings.Split(s, collectionSeparator)
}

// decodeEntryData parses the pivot JSON payload produced by the
// aggregation planner's outer level: a list of objects holding the
// explode field's value and "count", where nested object-list values
// are themselves JSON-encoded and, for a collection cell field
// (EntryDataField), the collected values are U+001F-joined and must be
// split again.
func decodeEntryData(v any, opts DecodeOpts) (any, error) {
	raw, _ := v.(string)
	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, apperr.NewGroupConcatTruncated(opts.ColumnsParam)
	}
	for _, elem := range entries {
		for key, val := range elem {
			if key == "count" {
				continue
			}
			nested, ok := val.(string)
			if !ok {
				continue
			}
			var decodedNested []map[string]any
			if err := json.Unmarshal([]byte(nested), &decodedNested); err != nil {
				continue
			}
			for _, inner := range decodedNested {
				if raw, ok := inner[opts.EntryDataField].(string); ok && opts.CollectionFields[opts.EntryDataField] {
					inner[opts.EntryDataField] = splitCollection(raw)
				}
			}
			elem[key] = decodedNested
		}
	}
	return entries, nil
}

// ParseCursor validates and converts the HTTP from/size string
// parameters, rejecting negatives and non-integers with a user error.
func ParseCursor(from, size string, defaultSize int) (int, int, error) {
	f := 0
	if from != "" {
		n, err := strconv.Atoi(from)
		if err != nil || n < 0 {
			return 0, 0, apperr.NewUser("invalid from parameter %q", from)
		}
		f = n
	}
	sz := defaultSize
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 0 {
			return 0, 0, apperr.NewUser("invalid size parameter %q", size)
		}
		sz = n
	}
	return f, sz, nil
}
