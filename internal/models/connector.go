// Package models defines the domain types for the connector catalog.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultOrg is the registry organization whose packages are listed when a
// request does not name one.
const DefaultOrg = "ballerinax"

// Package is one version of one connector as reported by the registry.
type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	URL         string   `json:"URL"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Icon        string   `json:"icon"`
	CreatedDate Date     `json:"createdDate"`
	// PullCount is the per-version download count.
	PullCount *int `json:"pullCount,omitempty"`
	// TotalPullCount is the count aggregated across all versions. It is only
	// set after enrichment.
	TotalPullCount *int `json:"totalPullCount,omitempty"`
}

// Key returns the name-version identity used for deduplication.
func (p Package) Key() string {
	return p.Name + "-" + p.Version
}

// Downloads returns the aggregate count when known, the per-version count
// otherwise, and zero when neither is reported.
func (p Package) Downloads() int {
	if p.TotalPullCount != nil {
		return *p.TotalPullCount
	}
	if p.PullCount != nil {
		return *p.PullCount
	}
	return 0
}

// WithTotalPullCount returns a copy of p carrying the given aggregate count.
func (p Package) WithTotalPullCount(n int) Package {
	p.TotalPullCount = &n
	return p
}

// Date is a creation timestamp. The registry reports it either as an
// ISO-8601 string or as Unix milliseconds; both decode to RFC 3339 text.
type Date string

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Date(s)
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("models: createdDate: %w", err)
	}
	*d = Date(time.UnixMilli(ms).UTC().Format(time.RFC3339))
	return nil
}

// Time parses the date. It reports false for empty or unparseable values.
func (d Date) Time() (time.Time, bool) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// ConnectorMetadata holds the facet values derived from a package's keywords.
type ConnectorMetadata struct {
	Area     string `json:"area"`
	Vendor   string `json:"vendor"`
	Type     string `json:"type"`
	Industry string `json:"industry"`
}

// FilterOptions is the set of facet values observable across a collection.
type FilterOptions struct {
	Areas   []string `json:"areas"`
	Vendors []string `json:"vendors"`
	Types   []string `json:"types"`
}

// SortOption selects the ordering of search results, in the form
// "<field>-<asc|desc>".
type SortOption string

// Supported sort options.
const (
	SortNameAsc       SortOption = "name-asc"
	SortNameDesc      SortOption = "name-desc"
	SortPullCountDesc SortOption = "pullCount-desc"
	SortPullCountAsc  SortOption = "pullCount-asc"
	SortDateDesc      SortOption = "date-desc"
	SortDateAsc       SortOption = "date-asc"
)

// DefaultSort is used when a request leaves the sort unset.
const DefaultSort = SortPullCountDesc

// Field returns the field component of the option.
func (s SortOption) Field() string {
	field, _, _ := strings.Cut(string(s), "-")
	return field
}

// Descending reports whether the option sorts high to low.
func (s SortOption) Descending() bool {
	return strings.HasSuffix(string(s), "-desc")
}

// Validate returns an error for options outside the supported set.
func (s SortOption) Validate() error {
	switch s {
	case SortNameAsc, SortNameDesc, SortPullCountDesc, SortPullCountAsc, SortDateDesc, SortDateAsc:
		return nil
	}
	return fmt.Errorf("unsupported sort option %q", string(s))
}

// SearchParams is an immutable search request.
type SearchParams struct {
	Query   string     `json:"query,omitempty"`
	Areas   []string   `json:"areas,omitempty"`
	Vendors []string   `json:"vendors,omitempty"`
	Types   []string   `json:"types,omitempty"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Sort    SortOption `json:"sort"`
	OrgName string     `json:"orgName,omitempty"`
}

// Org returns the organization the request is scoped to.
func (p SearchParams) Org() string {
	if p.OrgName == "" {
		return DefaultOrg
	}
	return p.OrgName
}

// SearchResponse is one page of results. Count is the total number of
// matches before pagination.
type SearchResponse struct {
	Packages []Package `json:"packages"`
	Count    int       `json:"count"`
	Offset   int       `json:"offset"`
	Limit    int       `json:"limit"`
}

// PackageDetails is the detail view of a single package version.
type PackageDetails struct {
	Package
	Org         string            `json:"org"`
	Readme      string            `json:"readme"`
	Versions    []string          `json:"versions"`
	DisplayName string            `json:"displayName"`
	Metadata    ConnectorMetadata `json:"metadata"`
	Overview    string            `json:"overview"`
	Setup       string            `json:"setup"`
	DocsURL     string            `json:"docsUrl,omitempty"`
}
