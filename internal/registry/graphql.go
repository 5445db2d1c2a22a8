package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/starford/connectorstore/internal/models"
)

const packagesQuery = `query GetConnectors($orgName: String!, $limit: Int!, $offset: Int!) {
  packages(orgName: $orgName, limit: $limit, offset: $offset) {
    packages {
      name
      version
      URL
      summary
      keywords
      icon
      createdDate
      totalPullCount
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphql posts a query and returns the raw response body after checking
// for a top-level errors array without data.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, endpoint string) ([]byte, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("registry: %s: encode: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("registry: %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("registry: %s: invalid JSON response", endpoint)
	}
	data := gjson.GetBytes(body, "data")
	if errs := gjson.GetBytes(body, "errors"); errs.IsArray() && len(errs.Array()) > 0 && (!data.Exists() || data.Type == gjson.Null) {
		msgs := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			msgs = append(msgs, e.Get("message").String())
		}
		return nil, fmt.Errorf("registry: %s: %s", endpoint, strings.Join(msgs, "; "))
	}
	return body, nil
}

// Packages returns one page of an organization's packages.
func (c *Client) Packages(ctx context.Context, org string, limit, offset int) ([]models.Package, error) {
	body, err := c.graphql(ctx, packagesQuery, map[string]any{
		"orgName": org,
		"limit":   limit,
		"offset":  offset,
	}, "graphql_packages")
	if err != nil {
		return nil, err
	}
	raw := gjson.GetBytes(body, "data.packages.packages")
	if !raw.Exists() {
		return nil, errors.New("registry: graphql_packages: response has no packages field")
	}
	var out []models.Package
	if err := json.Unmarshal([]byte(raw.Raw), &out); err != nil {
		return nil, fmt.Errorf("registry: graphql_packages: decode: %w", err)
	}
	return out, nil
}

// PackageRef names one package version.
type PackageRef struct {
	Name    string
	Version string
}

// Alias returns the positional alias used for item i in a batched query.
func Alias(i int) string {
	return "item" + strconv.Itoa(i)
}

// BatchPullCountsQuery builds one query that fetches the aggregate pull
// count of every ref, each under its positional alias. Names and versions
// travel as variables.
func BatchPullCountsQuery(org string, refs []PackageRef) (string, map[string]any) {
	var decl, body strings.Builder
	vars := map[string]any{"orgName": org}
	decl.WriteString("$orgName: String!")
	for i, ref := range refs {
		n, v := "n"+strconv.Itoa(i), "v"+strconv.Itoa(i)
		fmt.Fprintf(&decl, ", $%s: String!, $%s: String!", n, v)
		fmt.Fprintf(&body, "  %s: package(orgName: $orgName, packageName: $%s, version: $%s) { totalPullCount }\n",
			Alias(i), n, v)
		vars[n] = ref.Name
		vars[v] = ref.Version
	}
	return "query GetBatchedPullCounts(" + decl.String() + ") {\n" + body.String() + "}", vars
}

// PullCounts returns name -> aggregate pull count for refs in one round
// trip. Packages the registry does not resolve are absent from the map.
func (c *Client) PullCounts(ctx context.Context, org string, refs []PackageRef) (map[string]int, error) {
	if len(refs) == 0 {
		return map[string]int{}, nil
	}
	query, vars := BatchPullCountsQuery(org, refs)
	body, err := c.graphql(ctx, query, vars, "graphql_pull_counts")
	if err != nil {
		return nil, err
	}
	data := gjson.GetBytes(body, "data")
	out := make(map[string]int, len(refs))
	for i, ref := range refs {
		v := data.Get(Alias(i) + ".totalPullCount")
		if v.Exists() && v.Type == gjson.Number {
			out[ref.Name] = int(v.Int())
		}
	}
	return out, nil
}
