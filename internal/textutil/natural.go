package textutil

import (
	"sort"
	"strings"
)

// DigitKey returns every decimal digit in name, concatenated, with leading
// zeros removed. ok is false when name has no digits.
func DigitKey(name string) (key string, ok bool) {
	var b strings.Builder
	for _, r := range name {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	key = strings.TrimLeft(b.String(), "0")
	if key == "" {
		key = "0"
	}
	return key, true
}

// NaturalLess orders names by the integer formed from all their digits.
// Names without digits sort after every numbered name; ties fall back to the
// plain name.
func NaturalLess(a, b string) bool {
	ka, okA := DigitKey(a)
	kb, okB := DigitKey(b)
	switch {
	case okA && !okB:
		return true
	case !okA && okB:
		return false
	case okA && okB && ka != kb:
		// Equal-length digit strings compare lexically; otherwise shorter is smaller.
		if len(ka) != len(kb) {
			return len(ka) < len(kb)
		}
		return ka < kb
	default:
		return a < b
	}
}

// SortNatural sorts names in place with NaturalLess.
func SortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return NaturalLess(names[i], names[j])
	})
}
