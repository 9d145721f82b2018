package schema

import (
	"sort"
	"sync"
)

// Cache is the read-after-start, thread-safe in-memory schema: the global
// field catalogue plus every resource descriptor, indexed by resource id.
// It is populated once at startup (see internal/config) and is read-only
// afterwards, so readers need no lock beyond the one guarding the swap —
// matching the concurrency model in SPEC_FULL.md §5.
type Cache struct {
	mu        sync.RWMutex
	catalogue *Catalogue
	resources map[string]*ResourceConfig
	order     []string
}

// NewCache returns an empty Cache; call Load to populate it.
func NewCache() *Cache {
	return &Cache{resources: make(map[string]*ResourceConfig)}
}

// Load atomically replaces the catalogue and resource set. Returns the
// first catalogue-invariant violation found, if any; on error the previous
// contents are left untouched.
func (c *Cache) Load(catalogue *Catalogue, resources []*ResourceConfig) error {
	if err := catalogue.Validate(resources); err != nil {
		return err
	}
	catalogue.indexResources(resources)

	byID := make(map[string]*ResourceConfig, len(resources))
	order := make([]string, 0, len(resources))
	for _, rc := range resources {
		byID[rc.ResourceID] = rc
		order = append(order, rc.ResourceID)
	}
	sort.Strings(order)

	c.mu.Lock()
	c.catalogue = catalogue
	c.resources = byID
	c.order = order
	c.mu.Unlock()
	return nil
}

// Catalogue returns the global field catalogue.
func (c *Cache) Catalogue() *Catalogue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalogue
}

// Resource looks up a single resource descriptor by id.
func (c *Cache) Resource(resourceID string) *ResourceConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resources[resourceID]
}

// Resources returns every resource descriptor, in resource-id order.
func (c *Cache) Resources() []*ResourceConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ResourceConfig, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.resources[id])
	}
	return out
}

// ResourceCount returns the number of loaded resources.
func (c *Cache) ResourceCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resources)
}
