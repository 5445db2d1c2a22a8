// Package query translates catalog search requests into the registry's Solr
// query syntax and expands OR-filters into AND-only sub-requests.
package query

import (
	"fmt"
	"strings"

	"github.com/starford/connectorstore/internal/metadata"
	"github.com/starford/connectorstore/internal/models"
)

// reserved holds characters with meaning in the provider's query parser.
const reserved = ` +-&|!(){}[]^"~*?:\/`

// Build returns the provider query for params: the organization term, one
// keyword term per selected facet value, all ANDed. Free text, when present,
// comes first.
func Build(params models.SearchParams) string {
	terms := []string{"org:" + params.Org()}
	add := func(f metadata.Facet, values []string) {
		for _, v := range values {
			terms = append(terms, "keyword:"+quote(metadata.Keyword(f, v)))
		}
	}
	add(metadata.Area, params.Areas)
	add(metadata.Vendor, params.Vendors)
	add(metadata.Type, params.Types)

	filters := strings.Join(terms, " AND ")
	if text := strings.TrimSpace(params.Query); text != "" {
		return text + " AND " + filters
	}
	return filters
}

// quote wraps a keyword term in double quotes when its value part contains
// whitespace or parser-reserved characters. The facet prefix's slash is
// accepted unquoted by the provider.
func quote(term string) string {
	prefix, value, found := strings.Cut(term, "/")
	if !found || !strings.ContainsAny(value, reserved) {
		return term
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + prefix + "/" + escaped + `"`
}

var sortFields = map[string]string{
	"name":      "name",
	"pullCount": "pullCount",
	"date":      "createdDate",
}

// SortParam converts a sort option to the provider's "field,DIRECTION" form,
// e.g. "pullCount-desc" becomes "pullCount,DESC".
func SortParam(s models.SortOption) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	field, ok := sortFields[s.Field()]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", s.Field())
	}
	dir := "ASC"
	if s.Descending() {
		dir = "DESC"
	}
	return field + "," + dir, nil
}
