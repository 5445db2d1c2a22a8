// Package facets derives filter options from package records and serves them
// through a cache-backed progressive loader.
package facets

import (
	"sort"

	"github.com/starford/connectorstore/internal/metadata"
	"github.com/starford/connectorstore/internal/models"
)

// Extract collects the distinct area, vendor and type values of records,
// each list sorted. Records without a value contribute metadata.Other.
func Extract(records []models.Package) models.FilterOptions {
	areas := map[string]struct{}{}
	vendors := map[string]struct{}{}
	types := map[string]struct{}{}
	for _, r := range records {
		m := metadata.Parse(r.Keywords)
		areas[m.Area] = struct{}{}
		vendors[m.Vendor] = struct{}{}
		types[m.Type] = struct{}{}
	}
	return models.FilterOptions{
		Areas:   sortedKeys(areas),
		Vendors: sortedKeys(vendors),
		Types:   sortedKeys(types),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
