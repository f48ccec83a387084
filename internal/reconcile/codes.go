package reconcile

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// codePatterns match the three marker styles sellers embed listing
// codes in: #CODE, [CODE] and (CODE). Codes are 4-12 alphanumerics.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)#([A-Z0-9]{4,12})\b`),
	regexp.MustCompile(`(?i)\[([A-Z0-9]{4,12})\]`),
	regexp.MustCompile(`(?i)\(([A-Z0-9]{4,12})\)`),
}

var allDigits = regexp.MustCompile(`^\d+$`)

// ExtractCodes finds every embedded listing code in a title or
// description. Codes are uppercased and deduplicated; purely numeric
// matches are dropped since they are usually prices or rates in
// brackets, not codes.
func ExtractCodes(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, re := range codePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			code := strings.ToUpper(m[1])
			if len(code) < 4 || allDigits.MatchString(code) {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}

// codeAlphabet excludes the lookalike characters 0/O/1/I so codes
// survive manual transcription into listing titles.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode produces a new 8-character listing code: a two-letter
// prefix (padded randomly when shorter) plus six random characters.
func GenerateCode(prefix string) string {
	var b strings.Builder
	p := strings.ToUpper(prefix)
	if len(p) > 2 {
		p = p[:2]
	}
	b.WriteString(p)
	for b.Len() < 8 {
		b.WriteByte(codeAlphabet[randIndex(len(codeAlphabet))])
	}
	return b.String()
}

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return int(v.Int64())
}
