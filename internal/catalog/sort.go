package catalog

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/connectorstore/internal/metadata"
	"github.com/starford/connectorstore/internal/models"
)

// Sort returns a sorted copy of records. Names compare by display name
// under English collation; pull counts use the aggregate count, then the
// per-version count, then zero; dates use CreatedDate, with unparseable
// dates treated as the zero time. The sort is stable.
func Sort(records []models.Package, by models.SortOption) []models.Package {
	out := make([]models.Package, len(records))
	copy(out, records)

	desc := by.Descending()
	switch by.Field() {
	case "name":
		names := make(map[string]string, len(out))
		for _, r := range out {
			if _, ok := names[r.Name]; !ok {
				names[r.Name] = metadata.DisplayName(r.Name, metadata.Parse(r.Keywords).Vendor)
			}
		}
		col := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			c := col.CompareString(names[out[i].Name], names[out[j].Name])
			if desc {
				return c > 0
			}
			return c < 0
		})
	case "pullCount":
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Downloads(), out[j].Downloads()
			if desc {
				return a > b
			}
			return a < b
		})
	case "date":
		sort.SliceStable(out, func(i, j int) bool {
			a, b := created(out[i]), created(out[j])
			if desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	}
	return out
}

func created(p models.Package) time.Time {
	t, _ := p.CreatedDate.Time()
	return t
}
