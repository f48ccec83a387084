package catalog

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

func testResolver() *Resolver {
	entries := map[string]domain.CatalogEntry{
		"tralalero tralala":    {ID: "c1", CanonicalName: "Tralalero Tralala", FloorPrice: decimal.NewFromInt(5)},
		"la vacca saturno":     {ID: "c2", CanonicalName: "La Vacca Saturno", FloorPrice: decimal.NewFromInt(8)},
		"bombardiro crocodilo": {ID: "c3", CanonicalName: "Bombardiro Crocodilo", FloorPrice: decimal.NewFromInt(3)},
		"graipuss medussi":     {ID: "c4", CanonicalName: "Graipuss Medussi", FloorPrice: decimal.NewFromInt(12)},
	}
	return NewResolver(entries, slog.New(slog.DiscardHandler))
}

func TestResolveExact(t *testing.T) {
	r := testResolver()

	id := r.Resolve("Tralalero Tralala")
	assert.True(t, id.IsCataloged)
	assert.Equal(t, "c1", id.CatalogID)
	assert.Equal(t, "Tralalero Tralala", id.CanonicalName)

	id = r.Resolve("  LA VACCA SATURNO ")
	assert.True(t, id.IsCataloged)
	assert.Equal(t, "c2", id.CatalogID)
}

func TestResolvePartialWords(t *testing.T) {
	r := testResolver()

	// All significant words appear as substrings of the catalog key;
	// short connective words are ignored.
	id := r.Resolve("vacca saturno")
	assert.True(t, id.IsCataloged)
	assert.Equal(t, "c2", id.CatalogID)

	id = r.Resolve("graipuss")
	assert.True(t, id.IsCataloged)
	assert.Equal(t, "c4", id.CatalogID)

	// A query of only insignificant words never partial-matches.
	id = r.Resolve("la")
	assert.False(t, id.IsCataloged)
}

func TestResolveFuzzy(t *testing.T) {
	r := testResolver()

	id := r.Resolve("tralalero tralalla")
	assert.True(t, id.IsCataloged, "one edit away from the catalog key")
	assert.Equal(t, "c1", id.CatalogID)

	id = r.Resolve("completely unrelated name")
	assert.False(t, id.IsCataloged)
	assert.Equal(t, "completely unrelated name", id.CanonicalName)
}

func TestResolveDeterministicTies(t *testing.T) {
	r := testResolver()
	first := r.Resolve("saturno")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve("saturno"))
	}
}

func TestGenerateSearchVariants(t *testing.T) {
	vs := GenerateSearchVariants("LaVacca2")

	assert.NotEmpty(t, vs)
	assert.LessOrEqual(t, len(vs), maxVariants)
	assert.Equal(t, "LaVacca2", vs[0], "literal name comes first")
	assert.Contains(t, vs, "lavacca2")
	assert.Contains(t, vs, "La Vacca 2")

	// Deduplicated.
	seen := make(map[string]int)
	for _, v := range vs {
		seen[v]++
	}
	for v, n := range seen {
		assert.Equal(t, 1, n, "variant %q duplicated", v)
	}
}

func TestGenerateSearchVariantsCap(t *testing.T) {
	vs := GenerateSearchVariants("Supercalifragilistic")
	assert.Len(t, vs, maxVariants)
}

func TestGenerateSearchVariantsShortName(t *testing.T) {
	vs := GenerateSearchVariants("odin")
	assert.Equal(t, []string{"odin"}, vs)

	assert.Nil(t, GenerateSearchVariants("   "))
}
