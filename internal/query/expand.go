package query

import (
	"log/slog"

	"github.com/starford/connectorstore/internal/models"
)

// DefaultMaxCombinations caps the number of sub-requests one search may fan
// out into.
const DefaultMaxCombinations = 50

// Expand turns a request with multi-valued facets into the Cartesian product
// of single-valued sub-requests. Requests with at most one value per facet
// are returned as is. When the product exceeds maxCombinations the original
// request is returned alone and a warning is logged.
func Expand(params models.SearchParams, maxCombinations int, logger *slog.Logger) []models.SearchParams {
	if len(params.Areas) <= 1 && len(params.Vendors) <= 1 && len(params.Types) <= 1 {
		return []models.SearchParams{params}
	}
	if maxCombinations <= 0 {
		maxCombinations = DefaultMaxCombinations
	}

	areas := orEmpty(params.Areas)
	vendors := orEmpty(params.Vendors)
	types := orEmpty(params.Types)

	n := len(areas) * len(vendors) * len(types)
	if n > maxCombinations {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("query: filter combinations exceed limit, falling back to single query",
			slog.Int("combinations", n),
			slog.Int("max_combinations", maxCombinations))
		return []models.SearchParams{params}
	}

	out := make([]models.SearchParams, 0, n)
	for _, a := range areas {
		for _, v := range vendors {
			for _, t := range types {
				sub := params
				sub.Areas = single(a)
				sub.Vendors = single(v)
				sub.Types = single(t)
				out = append(out, sub)
			}
		}
	}
	return out
}

// orEmpty substitutes a single empty value for an unset facet so the product
// loop runs once for it.
func orEmpty(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}

func single(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
