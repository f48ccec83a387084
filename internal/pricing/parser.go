package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

// rateRule is one pattern of the title-parsing cascade. Rules are
// evaluated in table order; the billion-unit rules precede the
// million-unit rules and that precedence is load-bearing ("1.5B/s"
// must not parse as a bare million value). Each rule carries the
// multiplier that converts the captured number into M/s and the
// inclusive range a converted value must fall in to be accepted,
// which guards against false positives like listing ids.
type rateRule struct {
	re       *regexp.Regexp
	multiply float64
	min, max float64
}

var rateRules = []rateRule{
	// Billion-unit. Accepted post-conversion range is [1000, 99999] M/s.
	{regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*B/s(?:ec)?`), 1000, 1000, 99999},
	{regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*bil(?:lion)?(?:/s)?\b`), 1000, 1000, 99999},
	{regexp.MustCompile(`(?i)\[\s*(\d+[.,]?\d*)\s*B\s*\]`), 1000, 1000, 99999},
	// Million-unit.
	{regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*M/s(?:ec)?`), 1, 1, 9999},
	{regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*mil(?:/s)?\b`), 1, 1, 9999},
	{regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*M\b`), 1, 1, 9999},
}

// Range tokens like "10-20M/s" or "5 to 15 m/s" advertise a spread of
// rates, not a single one; such titles are unparseable on purpose.
var rangeRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+[.,]?\d*\s*[MB]?\s*[-~]\s*\d+[.,]?\d*\s*[MB]/s`),
	regexp.MustCompile(`(?i)\d+[.,]?\d*\s*[MB]?\s+to\s+\d+[.,]?\d*\s*[MB]/s`),
}

// ParseRate extracts a throughput rate in M/s from a free-text listing
// title. The second return is false when no pattern matched, which
// callers must treat differently from a zero rate.
func ParseRate(title string) (float64, bool) {
	if title == "" {
		return 0, false
	}
	for _, re := range rangeRules {
		if re.MatchString(title) {
			return 0, false
		}
	}
	for _, rule := range rateRules {
		m := rule.re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", ".")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		v *= rule.multiply
		if v < rule.min || v > rule.max {
			continue
		}
		return v, true
	}
	return 0, false
}
