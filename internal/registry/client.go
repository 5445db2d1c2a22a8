// Package registry talks to the package registry's REST search API, its
// GraphQL API and the connector documentation API.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/metrics"
	"github.com/starford/connectorstore/internal/retry"
)

// Default endpoints of the public registry.
const (
	DefaultRESTURL    = "https://api.central.ballerina.io/2.0"
	DefaultGraphQLURL = "https://api.central.ballerina.io/2.0/graphql"
)

// maxBody bounds how much of an upstream response is read.
const maxBody = 32 << 20

// Client issues single, un-retried requests against the registry. Callers
// wrap calls with the retry package.
type Client struct {
	http       *http.Client
	restURL    string
	graphqlURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRESTURL sets the REST API base URL (without a trailing slash).
func WithRESTURL(u string) Option {
	return func(c *Client) {
		c.restURL = u
	}
}

// WithGraphQLURL sets the GraphQL endpoint.
func WithGraphQLURL(u string) Option {
	return func(c *Client) {
		c.graphqlURL = u
	}
}

// New returns a Client for the public registry unless overridden by opts.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 15 * time.Second},
		restURL:    DefaultRESTURL,
		graphqlURL: DefaultGraphQLURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry: %s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// do performs req and returns the response body. 404 responses are reported
// as permanent apperr.ErrNotFound errors so retries stop early.
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("registry: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("registry: %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, retry.Permanent(fmt.Errorf("registry: %s: %w", endpoint, apperr.ErrNotFound))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, endpoint)
}
