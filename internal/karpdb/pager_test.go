package karpdb

import "testing"

// TestPlanPagesStitching mirrors S4: two resources of sizes 7 and 5,
// size=10, from=5. Expect resource A to contribute its last 2 rows
// (offset 5, limit 2) and resource B to contribute all 5, no
// over-fetch.
func TestPlanPagesStitching(t *testing.T) {
	pages := planPages([]int{7, 5}, 10, 5)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if !pages[0].fetch || pages[0].from != 5 || pages[0].size != 2 {
		t.Errorf("page[0] = %+v, want {fetch:true from:5 size:2}", pages[0])
	}
	if !pages[1].fetch || pages[1].from != 0 || pages[1].size != 5 {
		t.Errorf("page[1] = %+v, want {fetch:true from:0 size:5}", pages[1])
	}
	total := 0
	for _, pg := range pages {
		if pg.fetch {
			total += pg.size
		}
	}
	if total != 7 {
		t.Errorf("total rows = %d, want 7", total)
	}
}

func TestPlanPagesSkipsExhaustedResources(t *testing.T) {
	// from=20 skips past both resources entirely (total=12 < 20).
	pages := planPages([]int{7, 5}, 10, 20)
	for i, pg := range pages {
		if pg.fetch {
			t.Errorf("page[%d] should not fetch, got %+v", i, pg)
		}
	}
}

func TestPlanPagesStopsOnceSizeReached(t *testing.T) {
	pages := planPages([]int{7, 5, 100}, 10, 0)
	if !pages[0].fetch || pages[0].size != 7 {
		t.Errorf("page[0] = %+v, want size 7", pages[0])
	}
	if !pages[1].fetch || pages[1].size != 3 {
		t.Errorf("page[1] = %+v, want size 3", pages[1])
	}
	if pages[2].fetch {
		t.Errorf("page[2] should not fetch once size is satisfied, got %+v", pages[2])
	}
}

func TestSplitCollection(t *testing.T) {
	v := "a" + collectionSeparator + "b" + collectionSeparator + "c"
	got := splitCollection(v)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitCollectionEmpty(t *testing.T) {
	if got := splitCollection(""); got != nil {
		t.Errorf("splitCollection(\"\") = %v, want nil", got)
	}
}
