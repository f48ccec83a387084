package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		title string
		want  float64
		ok    bool
	}{
		{"Tralalero Tralala 150M/s Fast Delivery", 150, true},
		{"Brainrot God 1.5B/s #AB12CD34", 1500, true},
		{"cheap 2,5 b/sec instant", 2500, true},
		{"[1B] La Vacca Saturno", 1000, true},
		{"Odin 3 bil/s mythic", 3000, true},
		{"Secret unit 900 m/sec", 900, true},
		{"Graipuss 75.5M/s", 75.5, true},
		{"combo deal 120M", 120, true},
		{"10-20M/s mixed lot", 0, false},
		{"5 to 15 M/s account", 0, false},
		{"500M - 1B/s bundle", 0, false},
		{"no rate here", 0, false},
		{"", 0, false},
		// Out of range values are rejected, not clamped.
		{"0.5M/s starter", 0, false},
		{"[0.5B] tiny", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRate(tt.title)
		assert.Equal(t, tt.ok, ok, "title=%q", tt.title)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "title=%q", tt.title)
		}
	}
}

func TestParseRateBillionPrecedence(t *testing.T) {
	// A title carrying both units must resolve via the billion rule.
	got, ok := ParseRate("was 900M/s now 1.2B/s upgraded")
	assert.True(t, ok)
	assert.InDelta(t, 1200.0, got, 1e-9)
}

func TestParseRateBillionRange(t *testing.T) {
	// Converted billion values always land in [1000, 99999].
	for _, title := range []string{"1B/s", "1.001B/s", "50B/s", "99.9B/s"} {
		got, ok := ParseRate(title)
		assert.True(t, ok, title)
		assert.GreaterOrEqual(t, got, 1000.0, title)
		assert.LessOrEqual(t, got, 99999.0, title)
	}
	_, ok := ParseRate("100B/s")
	assert.False(t, ok, "100B converts to 100000, outside the valid range")
}

func TestParseRateDeterministic(t *testing.T) {
	title := "Tralalero 1,5B/s #XY99"
	a, okA := ParseRate(title)
	b, okB := ParseRate(title)
	assert.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}
