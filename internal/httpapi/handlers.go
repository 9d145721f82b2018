package httpapi

import (
	"net/http"
	"slices"
	"strings"

	"github.com/sprakbanken/karp-s/internal/access"
	"github.com/sprakbanken/karp-s/internal/aggregate"
	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/auth"
	"github.com/sprakbanken/karp-s/internal/karpdb"
	"github.com/sprakbanken/karp-s/internal/karpql"
	"github.com/sprakbanken/karp-s/internal/result"
	"github.com/sprakbanken/karp-s/internal/schema"
	"github.com/sprakbanken/karp-s/internal/sqlplan"
)

const defaultSearchSize = 10

// API wires the schema cache, the database, and the auth resolver into
// the three public endpoints.
type API struct {
	cache        *schema.Cache
	db           *karpdb.DB
	resolver     *auth.Resolver
	apiKeyHeader string
}

func NewAPI(cache *schema.Cache, db *karpdb.DB, resolver *auth.Resolver, apiKeyHeader string) *API {
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	return &API{cache: cache, db: db, resolver: resolver, apiKeyHeader: apiKeyHeader}
}

// resourceConfigsParam resolves the "resources" query parameter into
// resource descriptors, applying the limited-access filter against the
// caller's resolved scope.
func (a *API) resourceConfigsParam(r *http.Request) ([]*schema.ResourceConfig, error) {
	allowed, err := a.resolver.AllowedResources(r.Context(), bearerToken(r), r.Header.Get(a.apiKeyHeader))
	if err != nil {
		return nil, err
	}

	ids := parseList(r.URL.Query().Get("resources"))
	var resources []*schema.ResourceConfig
	if len(ids) == 0 {
		resources = a.cache.Resources()
	} else {
		for _, id := range ids {
			rc := a.cache.Resource(id)
			if rc == nil {
				return nil, apperr.NewUser("unknown resource: %s", id)
			}
			resources = append(resources, rc)
		}
	}
	if err := access.Filter(allowed, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (a *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildConfigResponse(a.cache))
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	resources, err := a.resourceConfigsParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q, err := karpql.Parse(normalize(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, err)
		return
	}

	sorts, err := parseSort(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, err)
		return
	}

	from, size, err := karpdb.ParseCursor(r.URL.Query().Get("from"), r.URL.Query().Get("size"), defaultSearchSize)
	if err != nil {
		writeError(w, err)
		return
	}

	matched, queries, err := sqlplan.BuildSearch(a.cache.Catalogue(), resources, q, nil, sortToSQLPlan(sorts))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(matched) == 0 {
		writeJSON(w, result.SearchResult{ResourceHits: map[string]int{}})
		return
	}

	session, err := a.db.Session(r.Context())
	if err != nil {
		writeError(w, apperr.NewInternal("%v", err))
		return
	}
	defer session.Close()

	opts := karpdb.DecodeOpts{CollectionFields: collectionFieldSet(a.cache, matched)}
	results, counts, err := session.RunPagedSearches(r.Context(), queries, size, from, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	order := make([]string, len(matched))
	resultsByID := make(map[string]*karpdb.PlanResult, len(matched))
	countsByID := make(map[string]int, len(matched))
	for i, rc := range matched {
		order[i] = rc.ResourceID
		resultsByID[rc.ResourceID] = results[i]
		countsByID[rc.ResourceID] = counts[i]
	}

	writeJSON(w, result.AssembleSearch(order, nil, resultsByID, countsByID, size))
}

func (a *API) handleCount(w http.ResponseWriter, r *http.Request) {
	resources, err := a.resourceConfigsParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q, err := karpql.Parse(normalize(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, err)
		return
	}

	compile := parseList(r.URL.Query().Get("compile"))
	columnsParam := r.URL.Query().Get("columns")
	column, err := parseColumns(columnsParam)
	if err != nil {
		writeError(w, err)
		return
	}
	sorts, err := parseSort(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Each per-resource plan selects the resource_id literal plus the
	// compile, explode and cell columns the aggregation levels group on.
	selection := []string{"resource_id"}
	for _, f := range append(append([]string(nil), compile...), column.ExplodeField, column.CellField) {
		if f != "_count" && !slices.Contains(selection, f) {
			selection = append(selection, f)
		}
	}

	matched, queries, err := sqlplan.BuildSearch(a.cache.Catalogue(), resources, q, selection, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(matched) == 0 {
		writeJSON(w, result.CountResult{Headers: []any{}, Total: result.TotalRow{Key: "-"}})
		return
	}

	innerQueries := make([]sqlplan.InnerQuery, len(matched))
	for i, rc := range matched {
		innerQueries[i] = sqlplan.InnerQuery{Resource: rc, Query: queries[i]}
	}

	agg, err := aggregate.Build(innerQueries, compile, column, sortToAggregate(sorts))
	if err != nil {
		writeError(w, err)
		return
	}
	grandTotal := aggregate.GrandTotal(innerQueries)

	session, err := a.db.Session(r.Context())
	if err != nil {
		writeError(w, apperr.NewInternal("%v", err))
		return
	}
	defer session.Close()

	opts := karpdb.DecodeOpts{
		CollectionFields:     collectionFieldSet(a.cache, matched),
		IsAggregation:        true,
		EntryDataColumnIndex: len(compile),
		EntryDataField:       column.CellField,
		ColumnsParam:         columnsParam,
	}

	aggResults, err := session.RunSearches(r.Context(), []*sqlplan.Query{agg}, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	totalOpts := opts
	totalOpts.EntryDataColumnIndex = 0 // grand total always compiles on no fields
	totalResults, err := session.RunSearches(r.Context(), []*sqlplan.Query{grandTotal}, totalOpts)
	if err != nil {
		writeError(w, err)
		return
	}

	var rows, totalRows [][]any
	if aggResults[0] != nil {
		rows = aggResults[0].Rows
	}
	if totalResults[0] != nil {
		totalRows = totalResults[0].Rows
	}

	writeJSON(w, result.AssembleCount(compile, column.ExplodeField, column.CellField, rows, totalRows))
}

func collectionFieldSet(cache *schema.Cache, resources []*schema.ResourceConfig) map[string]bool {
	cat := cache.Catalogue()
	out := make(map[string]bool)
	for _, rc := range resources {
		for _, f := range rc.Fields {
			if def := cat.Get(f.Name); def != nil && def.Collection {
				out[f.Name] = true
			}
		}
	}
	return out
}
