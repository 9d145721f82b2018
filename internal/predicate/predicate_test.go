package predicate

import (
	"testing"

	"github.com/sprakbanken/karp-s/internal/karpql"
	"github.com/sprakbanken/karp-s/internal/schema"
)

func testCatalogue() *schema.Catalogue {
	return schema.NewCatalogue([]*schema.FieldDef{
		{Name: "entryWord", Type: schema.FieldText},
		{Name: "form", Type: schema.FieldText},
		{Name: "partOfSpeech", Type: schema.FieldText},
		{Name: "freq", Type: schema.FieldFloat},
		{Name: "senses", Type: schema.FieldText, Collection: true},
	})
}

func testResource() *schema.ResourceConfig {
	return &schema.ResourceConfig{
		ResourceID: "ao",
		Fields: []schema.ResourceField{
			{Name: "entryWord", Primary: true},
			{Name: "form"},
			{Name: "freq"},
			{Name: "senses"},
		},
		EntryWord: schema.EntryWordRef{Field: "entryWord"},
	}
}

func mustParse(t *testing.T, src string) *karpql.Query {
	t.Helper()
	q, err := karpql.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return q
}

func TestCompileNumericTolerance(t *testing.T) {
	q := mustParse(t, "equals|freq|0.5")
	_, clauses, err := Compile(testCatalogue(), testResource(), q)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	want := "ABS(`freq` - 0.5) < 0.01"
	if clauses[0].Fragment != want {
		t.Errorf("fragment = %q, want %q", clauses[0].Fragment, want)
	}
}

func TestCompileQuoteEscape(t *testing.T) {
	q := mustParse(t, "equals|form|o'clock")
	_, clauses, err := Compile(testCatalogue(), testResource(), q)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	want := `= 'o\'clock'`
	got := clauses[0].Fragment
	if got[len(got)-len(want):] != want {
		t.Errorf("fragment = %q, want suffix %q", got, want)
	}
}

func TestCompileEntryWordRewrite(t *testing.T) {
	q := mustParse(t, "equals|entry_word|eventuell")
	_, clauses, err := Compile(testCatalogue(), testResource(), q)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if clauses[0].Field != "entryWord" {
		t.Errorf("Field = %q, want entryWord (resolved via entry_word rewrite)", clauses[0].Field)
	}
}

func TestCompileUnknownFieldIsUserError(t *testing.T) {
	q := mustParse(t, "equals|bogus|x")
	_, _, err := Compile(testCatalogue(), testResource(), q)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestCompileUnsupportedNumericOp(t *testing.T) {
	q := &karpql.Query{Op: karpql.And, Clauses: []karpql.SubQuery{
		{Op: karpql.OpStartsWith, Field: "freq", Value: "1"},
	}}
	_, _, err := Compile(testCatalogue(), testResource(), q)
	if err == nil {
		t.Fatal("expected error for unsupported op on numeric field")
	}
}

func TestCompileCollectionUsesValueColumn(t *testing.T) {
	q := mustParse(t, "contains|senses|water")
	_, clauses, err := Compile(testCatalogue(), testResource(), q)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	want := "`value` LIKE '%water%'"
	if clauses[0].Fragment != want {
		t.Errorf("fragment = %q, want %q", clauses[0].Fragment, want)
	}
}

func TestCompileBoolOp(t *testing.T) {
	q := mustParse(t, "and(equals|partOfSpeech|nn||startswith|form|katt)")
	op, clauses, err := Compile(testCatalogue(), testResource(), q)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if op != karpql.And {
		t.Errorf("op = %q, want and", op)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
}
