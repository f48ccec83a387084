package domain

// Band is one of the fixed rate buckets mirroring the marketplace's own
// M/s filter categories. Bands are ordered by lower bound and partition
// [0, +inf) with no gaps or overlaps; the top band is open-ended.
type Band int

const (
	Band0to25 Band = iota
	Band25to50
	Band50to100
	Band100to250
	Band250to500
	Band500to750
	Band750to1000
	Band1000Plus
)

// bandDef carries the inclusive lower bound, exclusive upper bound, the
// label shown in rationales, and the marketplace attribute id used when
// filtering search results by band.
type bandDef struct {
	min    float64
	max    float64 // exclusive; <0 means open-ended
	label  string
	attrID string
}

var bandTable = [...]bandDef{
	Band0to25:     {0, 25, "0-24 M/s", "0-1"},
	Band25to50:    {25, 50, "25-49 M/s", "0-2"},
	Band50to100:   {50, 100, "50-99 M/s", "0-3"},
	Band100to250:  {100, 250, "100-249 M/s", "0-4"},
	Band250to500:  {250, 500, "250-499 M/s", "0-5"},
	Band500to750:  {500, 750, "500-749 M/s", "0-6"},
	Band750to1000: {750, 1000, "750-999 M/s", "0-7"},
	Band1000Plus:  {1000, -1, "1+ B/s", "0-8"},
}

// BandOf maps a non-negative rate to the single band containing it.
// Negative rates are clamped into the lowest band.
func BandOf(rate float64) Band {
	for b := Band1000Plus; b > Band0to25; b-- {
		if rate >= bandTable[b].min {
			return b
		}
	}
	return Band0to25
}

// Min returns the band's inclusive lower bound in M/s.
func (b Band) Min() float64 { return bandTable[b].min }

// Max returns the band's exclusive upper bound in M/s, or -1 for the
// open-ended top band.
func (b Band) Max() float64 { return bandTable[b].max }

// AttrID returns the marketplace attribute id used to filter offers to
// this band in search requests.
func (b Band) AttrID() string { return bandTable[b].attrID }

// Contains reports whether rate falls inside the band.
func (b Band) Contains(rate float64) bool {
	d := bandTable[b]
	if d.max < 0 {
		return rate >= d.min
	}
	return rate >= d.min && rate < d.max
}

func (b Band) String() string {
	if b < Band0to25 || b > Band1000Plus {
		return "unknown"
	}
	return bandTable[b].label
}

// Bands returns all bands in ascending order.
func Bands() []Band {
	out := make([]Band, 0, len(bandTable))
	for b := range bandTable {
		out = append(out, Band(b))
	}
	return out
}
