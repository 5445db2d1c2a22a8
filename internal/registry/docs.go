package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/connectorstore/internal/apperr"
)

// DocsClient looks up connector documentation links on the connector docs API.
type DocsClient struct {
	c       *Client
	baseURL string
}

// NewDocsClient returns a DocsClient sharing c's HTTP transport.
func NewDocsClient(c *Client, baseURL string) *DocsClient {
	return &DocsClient{c: c, baseURL: strings.TrimRight(baseURL, "/")}
}

type docsConnector struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	DocumentationURL string `json:"documentationUrl,omitempty"`
}

// DocumentationURL finds the connector whose name matches name (exact,
// case-insensitive and trimmed first, then substring) and returns its
// documentation URL. It returns apperr.ErrNotFound when nothing matches.
func (d *DocsClient) DocumentationURL(ctx context.Context, name string) (string, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", apperr.ErrNotFound
	}

	body, err := d.c.get(ctx, d.baseURL+"/connectors/names", "docs_names")
	if err != nil {
		return "", err
	}
	var list []docsConnector
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("registry: docs_names: decode: %w", err)
	}

	match := matchConnector(list, needle)
	if match == nil {
		return "", apperr.ErrNotFound
	}

	body, err = d.c.get(ctx, d.baseURL+"/connectors/"+url.PathEscape(match.ID), "docs_details")
	if err != nil {
		return "", err
	}
	var details docsConnector
	if err := json.Unmarshal(body, &details); err != nil {
		return "", fmt.Errorf("registry: docs_details: decode: %w", err)
	}
	if details.DocumentationURL == "" {
		return "", errors.Join(apperr.ErrNotFound, fmt.Errorf("connector %s has no documentation link", match.ID))
	}
	return details.DocumentationURL, nil
}

func matchConnector(list []docsConnector, needle string) *docsConnector {
	for i := range list {
		if strings.ToLower(strings.TrimSpace(list[i].Name)) == needle {
			return &list[i]
		}
	}
	for i := range list {
		if strings.Contains(strings.ToLower(list[i].Name), needle) {
			return &list[i]
		}
	}
	return nil
}
