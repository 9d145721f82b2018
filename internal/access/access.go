// Package access enforces the limited-access resource filter: a caller
// must have the resource in their resolved allowed set before the core
// will query it.
package access

import (
	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/schema"
)

// Filter drops nothing and returns an error on the first resource whose
// limited_access flag is set and whose id is absent from allowed.
// allowed may be nil/empty, meaning the caller has no elevated access.
func Filter(allowed map[string]bool, resources []*schema.ResourceConfig) error {
	for _, rc := range resources {
		if rc.LimitedAccess && !allowed[rc.ResourceID] {
			return apperr.NewAccessDenied(rc.ResourceID)
		}
	}
	return nil
}
