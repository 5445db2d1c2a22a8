// Package catalog holds the pure list operations applied to already fetched
// records (filter, sort, paginate, display formatting) and the offline
// snapshot source built on them.
package catalog

import (
	"slices"
	"strings"

	"github.com/starford/connectorstore/internal/metadata"
	"github.com/starford/connectorstore/internal/models"
)

// Filters selects records client-side. Empty lists match everything.
type Filters struct {
	Query   string
	Areas   []string
	Vendors []string
	Types   []string
}

// FiltersFrom returns the client-side filters equivalent to params.
func FiltersFrom(params models.SearchParams) Filters {
	return Filters{Query: params.Query, Areas: params.Areas, Vendors: params.Vendors, Types: params.Types}
}

// Filter returns the records matching f: every non-empty facet list must
// contain the record's value, and the query must occur, case-insensitively,
// in the record's searchable text. records is not modified.
func Filter(records []models.Package, f Filters) []models.Package {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Package, 0, len(records))
	for _, r := range records {
		m := metadata.Parse(r.Keywords)
		if !accepts(f.Areas, m.Area) || !accepts(f.Vendors, m.Vendor) || !accepts(f.Types, m.Type) {
			continue
		}
		if q != "" && !strings.Contains(searchText(r, m), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func accepts(selected []string, v string) bool {
	return len(selected) == 0 || slices.Contains(selected, v)
}

func searchText(r models.Package, m models.ConnectorMetadata) string {
	parts := []string{r.Name, metadata.DisplayName(r.Name, m.Vendor), r.Summary}
	parts = append(parts, r.Keywords...)
	parts = append(parts, m.Area, m.Vendor, m.Type)
	return strings.ToLower(strings.Join(parts, " "))
}

// Paginate returns the 1-based page of the given size. Pages outside the
// range, and non-positive sizes, yield an empty slice.
func Paginate(records []models.Package, page, size int) []models.Package {
	if page < 1 || size < 1 {
		return []models.Package{}
	}
	start := (page - 1) * size
	if start >= len(records) || start < 0 {
		return []models.Package{}
	}
	end := min(start+size, len(records))
	return slices.Clone(records[start:end])
}

// Window returns records[offset:offset+limit], clamped to the slice.
func Window(records []models.Package, offset, limit int) []models.Package {
	if offset < 0 || limit < 1 || offset >= len(records) {
		return []models.Package{}
	}
	return slices.Clone(records[offset:min(offset+limit, len(records))])
}
