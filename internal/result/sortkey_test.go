package result

import (
	"sort"
	"testing"
)

func TestLessDigitRuns(t *testing.T) {
	cases := []struct{ a, b string }{
		{"item2", "item10"},
		{"a1b2", "a1b10"},
	}
	for _, c := range cases {
		if !Less(c.a, c.b) {
			t.Errorf("Less(%q, %q) = false, want true", c.a, c.b)
		}
		if Less(c.b, c.a) {
			t.Errorf("Less(%q, %q) = true, want false", c.b, c.a)
		}
	}
}

func TestLessSwedishCollationOrdersAfterZ(t *testing.T) {
	words := []string{"ö", "z", "a", "ä", "å"}
	sort.Slice(words, func(i, j int) bool { return Less(words[i], words[j]) })
	want := []string{"a", "z", "å", "ä", "ö"}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("got order %v, want %v", words, want)
		}
	}
}

func TestLessStableUnderIdentityPermutation(t *testing.T) {
	in := []string{"b", "a", "c"}
	out := append([]string(nil), in...)
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	want := []string{"a", "b", "c"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}
