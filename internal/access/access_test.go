package access

import (
	"testing"

	"github.com/sprakbanken/karp-s/internal/schema"
)

func TestFilterDeniesWithoutScope(t *testing.T) {
	resources := []*schema.ResourceConfig{
		{ResourceID: "public", LimitedAccess: false},
		{ResourceID: "internal", LimitedAccess: true},
	}
	if err := Filter(nil, resources); err == nil {
		t.Fatal("expected access error for limited_access resource with no allowed set")
	}
}

func TestFilterAllowsWithScope(t *testing.T) {
	resources := []*schema.ResourceConfig{
		{ResourceID: "internal", LimitedAccess: true},
	}
	allowed := map[string]bool{"internal": true}
	if err := Filter(allowed, resources); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFilterAllowsPublicResources(t *testing.T) {
	resources := []*schema.ResourceConfig{
		{ResourceID: "public"},
	}
	if err := Filter(nil, resources); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
