package catalog

import (
	"strings"
	"unicode"
)

// maxVariants bounds the number of speculative search queries per name
// to keep scan cost predictable.
const maxVariants = 6

// GenerateSearchVariants produces the ordered search queries to try for
// an uncataloged name: the literal name, its lowercase form, a
// de-concatenated form with word boundaries restored, and speculative
// splits of long tokens. Duplicates are dropped, order is preserved,
// and the sequence never exceeds six entries.
func GenerateSearchVariants(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || len(out) >= maxVariants {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(name)
	add(strings.ToLower(name))
	add(splitBoundaries(name))

	for _, tok := range strings.Fields(name) {
		if len(tok) <= 5 {
			continue
		}
		for i := 2; i <= len(tok)-2; i++ {
			add(tok[:i] + " " + tok[i:])
			if len(out) >= maxVariants {
				return out
			}
		}
	}
	return out
}

// splitBoundaries inserts spaces at lower-to-upper and letter-to-digit
// transitions, recovering word boundaries lost to concatenation
// ("LaVacca2" -> "La Vacca 2").
func splitBoundaries(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			lowerUpper := unicode.IsLower(prev) && unicode.IsUpper(r)
			letterDigit := unicode.IsLetter(prev) && unicode.IsDigit(r)
			if lowerUpper || letterDigit {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
