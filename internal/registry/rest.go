package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/Masterminds/semver/v3"

	"github.com/starford/connectorstore/internal/models"
)

// SearchRequest is one provider-level search call.
type SearchRequest struct {
	Query  string
	Offset int
	Limit  int
	Sort   string
}

type searchResponse struct {
	Packages []models.Package `json:"packages"`
	Count    int              `json:"count"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
}

// SearchPackages runs one search against the Solr-backed endpoint. The sort
// parameter is appended unencoded so its comma reaches the provider as is.
func (c *Client) SearchPackages(ctx context.Context, r SearchRequest) (models.SearchResponse, error) {
	q := url.Values{}
	q.Set("q", r.Query)
	q.Set("offset", strconv.Itoa(r.Offset))
	q.Set("limit", strconv.Itoa(r.Limit))
	q.Set("readme", "false")
	u := c.restURL + "/registry/search-packages?" + q.Encode()
	if r.Sort != "" {
		u += "&sort=" + r.Sort
	}

	body, err := c.get(ctx, u, "search")
	if err != nil {
		return models.SearchResponse{}, err
	}
	var raw searchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.SearchResponse{}, fmt.Errorf("registry: search: decode: %w", err)
	}
	if raw.Packages == nil {
		raw.Packages = []models.Package{}
	}
	return models.SearchResponse{
		Packages: raw.Packages,
		Count:    raw.Count,
		Offset:   raw.Offset,
		Limit:    raw.Limit,
	}, nil
}

// PackageWithReadme is a package version as returned by the details endpoint.
type PackageWithReadme struct {
	models.Package
	Readme string `json:"readme"`
}

// PackageDetails fetches one package version including its README.
func (c *Client) PackageDetails(ctx context.Context, org, name, version string) (PackageWithReadme, error) {
	u := fmt.Sprintf("%s/registry/packages/%s/%s/%s",
		c.restURL, url.PathEscape(org), url.PathEscape(name), url.PathEscape(version))
	body, err := c.get(ctx, u, "package")
	if err != nil {
		return PackageWithReadme{}, err
	}
	var out PackageWithReadme
	if err := json.Unmarshal(body, &out); err != nil {
		return PackageWithReadme{}, fmt.Errorf("registry: package: decode: %w", err)
	}
	return out, nil
}

// PackageVersions lists the published versions of a package, newest first.
func (c *Client) PackageVersions(ctx context.Context, org, name string) ([]string, error) {
	u := fmt.Sprintf("%s/registry/packages/%s/%s", c.restURL, url.PathEscape(org), url.PathEscape(name))
	body, err := c.get(ctx, u, "versions")
	if err != nil {
		return nil, err
	}
	var versions []string
	if err := json.Unmarshal(body, &versions); err != nil {
		return nil, fmt.Errorf("registry: versions: decode: %w", err)
	}
	return SortVersions(versions), nil
}

// SortVersions orders versions newest first by semantic version. Strings that
// are not valid versions sort after all valid ones, in input order.
func SortVersions(versions []string) []string {
	type entry struct {
		raw string
		v   *semver.Version
	}
	entries := make([]entry, len(versions))
	for i, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			v = nil
		}
		entries[i] = entry{raw: raw, v: v}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].v, entries[j].v
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.GreaterThan(b)
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out
}
