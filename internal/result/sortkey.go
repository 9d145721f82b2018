package result

import (
	"strconv"
	"sync"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collatorPool hands out sv_SE collators: a Collator is not safe for
// concurrent use, so headers/values sorted from multiple goroutines
// each borrow their own.
var collatorPool = sync.Pool{
	New: func() any { return collate.New(language.Swedish) },
}

// keyPart is one run of the alphanumeric sort key: either a digit run
// (compared as an integer) or a text run (compared under sv_SE
// collation), matching the split-on-digit-runs convention used for
// both header and value sorting.
type keyPart struct {
	digit bool
	num   int
	text  string
}

// sortKey splits s into alternating text/digit runs, always starting
// with a (possibly empty) text run so that two keys compare run-by-run
// without type mismatches.
func sortKey(s string) []keyPart {
	runes := []rune(s)
	var parts []keyPart
	i := 0
	expectDigit := false
	for {
		start := i
		for i < len(runes) && unicode.IsDigit(runes[i]) == expectDigit {
			i++
		}
		if expectDigit {
			n, _ := strconv.Atoi(string(runes[start:i]))
			parts = append(parts, keyPart{digit: true, num: n})
		} else {
			parts = append(parts, keyPart{text: string(runes[start:i])})
		}
		expectDigit = !expectDigit
		if i >= len(runes) {
			break
		}
	}
	return parts
}

// Less orders a before b under the locale-aware alphanumeric key: digit
// runs compare as integers, text runs compare under sv_SE collation.
func Less(a, b string) bool {
	ka, kb := sortKey(a), sortKey(b)
	col := collatorPool.Get().(*collate.Collator)
	defer collatorPool.Put(col)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		pa, pb := ka[i], kb[i]
		if pa.digit {
			if pa.num != pb.num {
				return pa.num < pb.num
			}
			continue
		}
		if c := col.CompareString(pa.text, pb.text); c != 0 {
			return c < 0
		}
	}
	return len(ka) < len(kb)
}
