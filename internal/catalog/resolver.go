package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// Resolver maps free-form item names onto catalog identities. The
// catalog is loaded once at startup and read-only afterwards; key order
// is fixed at construction so partial-match ties resolve the same way
// on every call.
type Resolver struct {
	entries map[string]domain.CatalogEntry
	keys    []string
	logger  *slog.Logger
}

// NewResolver builds a resolver over the given catalog. Keys are
// lowercased and ordered lexicographically.
func NewResolver(entries map[string]domain.CatalogEntry, logger *slog.Logger) *Resolver {
	norm := make(map[string]domain.CatalogEntry, len(entries))
	keys := make([]string, 0, len(entries))
	for k, e := range entries {
		lk := strings.ToLower(strings.TrimSpace(k))
		if lk == "" {
			continue
		}
		norm[lk] = e
		keys = append(keys, lk)
	}
	sort.Strings(keys)
	return &Resolver{entries: norm, keys: keys, logger: logger.With(slog.String("component", "catalog"))}
}

// Load builds a resolver from the backing catalog store.
func Load(ctx context.Context, store domain.CatalogStore, logger *slog.Logger) (*Resolver, error) {
	entries, err := store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	r := NewResolver(entries, logger)
	r.logger.Info("catalog loaded", slog.Int("entries", len(r.keys)))
	return r, nil
}

// maxEditDistance bounds the fuzzy fallback; anything farther than two
// edits from every catalog key is treated as uncataloged.
const maxEditDistance = 2

// Resolve finds the catalog identity for a name. Lookup is exact match
// first, then a word-containment partial match, then a bounded edit
// distance fallback. Names matching nothing come back uncataloged with
// the input itself as the canonical form.
func (r *Resolver) Resolve(name string) domain.ListingIdentity {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return domain.ListingIdentity{CanonicalName: name}
	}

	if e, ok := r.entries[q]; ok {
		return identityOf(e)
	}

	if key, ok := r.partialMatch(q); ok {
		return identityOf(r.entries[key])
	}

	if key, ok := r.fuzzyMatch(q); ok {
		r.logger.Debug("fuzzy catalog match",
			slog.String("query", q), slog.String("key", key))
		return identityOf(r.entries[key])
	}

	return domain.ListingIdentity{CanonicalName: strings.TrimSpace(name)}
}

// partialMatch reports the first catalog key containing every
// significant word of the query as a substring. Words of one or two
// characters carry no signal and are ignored.
func (r *Resolver) partialMatch(q string) (string, bool) {
	var words []string
	for _, w := range strings.Fields(q) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return "", false
	}
	for _, key := range r.keys {
		all := true
		for _, w := range words {
			if !strings.Contains(key, w) {
				all = false
				break
			}
		}
		if all {
			return key, true
		}
	}
	return "", false
}

// fuzzyMatch returns the catalog key closest to the query within the
// edit distance bound, preferring the earlier key on ties.
func (r *Resolver) fuzzyMatch(q string) (string, bool) {
	best := ""
	bestDist := maxEditDistance + 1
	for _, key := range r.keys {
		d := levenshtein.ComputeDistance(q, key)
		if d < bestDist {
			best, bestDist = key, d
		}
	}
	return best, bestDist <= maxEditDistance
}

func identityOf(e domain.CatalogEntry) domain.ListingIdentity {
	return domain.ListingIdentity{
		CanonicalName: e.CanonicalName,
		CatalogID:     e.ID,
		IsCataloged:   true,
	}
}
