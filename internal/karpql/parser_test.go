package karpql

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseEmpty(t *testing.T) {
	for _, src := range []string{"", "   "} {
		got, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", src, err)
		}
		want := Empty()
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Parse(%q) mismatch (-want +got):\n%s", src, diff)
		}
	}
}

func TestParseBareSubQuery(t *testing.T) {
	got, err := Parse("equals|wordClass|noun")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := &Query{
		Op:      And,
		Clauses: []SubQuery{{Op: OpEquals, Field: "wordClass", Value: "noun"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBoolGroup(t *testing.T) {
	got, err := Parse("and(equals|wordClass|noun||startswith|baseform|katt)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := &Query{
		Op: And,
		Clauses: []SubQuery{
			{Op: OpEquals, Field: "wordClass", Value: "noun"},
			{Op: OpStartsWith, Field: "baseform", Value: "katt"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOrGroupSingleClause(t *testing.T) {
	got, err := Parse("or(contains|gloss|hund)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := &Query{
		Op:      Or,
		Clauses: []SubQuery{{Op: OpContains, Field: "gloss", Value: "hund"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNumericComparisons(t *testing.T) {
	got, err := Parse("and(gte|frequency|10||lt|frequency|1000)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := &Query{
		Op: And,
		Clauses: []SubQuery{
			{Op: OpGTE, Field: "frequency", Value: "10"},
			{Op: OpLT, Field: "frequency", Value: "1000"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEscapedPipeInValue(t *testing.T) {
	got, err := Parse("equals|gloss|cat||dog")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := &Query{
		Op:      And,
		Clauses: []SubQuery{{Op: OpEquals, Field: "gloss", Value: "cat|dog"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"bogus|field|value",
		"equals|field",
		"and(equals|field|value",
		"and(equals|field|value||)",
	}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", src)
		}
	}
}

func TestNestedGroupsUnsupported(t *testing.T) {
	// The grammar explicitly forbids nesting boolean groups; a nested
	// "and(" is just more field/value text and should fail to parse as
	// a clause, not silently recurse.
	if _, err := Parse("and(equals|f|v||and(equals|f2|v2))"); err == nil {
		t.Errorf("expected error for nested boolean group")
	}
}
