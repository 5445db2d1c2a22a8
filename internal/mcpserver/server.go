// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the connector catalog for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/connectorservice"
	"github.com/starford/connectorstore/internal/metadata"
	"github.com/starford/connectorstore/internal/models"
)

const (
	defaultLimit   = 10
	maxLimit       = 100
	searchGuideURI = "connectorstore://search-guide"
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *connectorservice.Service
	now func() time.Time
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *connectorservice.Service, version string) *Server {
	s := &Server{svc: svc, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Connector Store",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_connectors",
		mcp.WithDescription("Search the connector catalog with optional free text and facet filters. "+
			"Values within a facet are ORed, facets are ANDed. See the get_search_guide tool "+
			"or the "+searchGuideURI+" resource for details."),
		mcp.WithString("query", mcp.Description("Free-text query")),
		mcp.WithArray("areas", mcp.WithStringItems(), mcp.Description("Area facet values, e.g. Finance")),
		mcp.WithArray("vendors", mcp.WithStringItems(), mcp.Description("Vendor facet values, e.g. Salesforce")),
		mcp.WithArray("types", mcp.WithStringItems(), mcp.Description("Type facet values, e.g. Connector")),
		mcp.WithNumber("offset", mcp.Description("Result offset, starting at 0")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 10, at most 100)")),
		mcp.WithString("sort", mcp.Description("Sort option"), mcp.Enum(
			string(models.SortPullCountDesc), string(models.SortPullCountAsc),
			string(models.SortNameAsc), string(models.SortNameDesc),
			string(models.SortDateDesc), string(models.SortDateAsc),
		)),
		mcp.WithBoolean("enrich", mcp.Description("Report downloads across all versions instead of the listed version")),
		mcp.WithString("org", mcp.Description("Registry organization (defaults to the configured one)")),
	), s.searchConnectors)

	s.mcp.AddTool(mcp.NewTool("get_connector",
		mcp.WithDescription("Show one connector: summary, facets, versions, downloads, documentation link "+
			"and the Overview and Setup sections of its README."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Package name, e.g. aws.s3")),
		mcp.WithString("version", mcp.Description("Package version (newest when empty)")),
		mcp.WithString("org", mcp.Description("Registry organization (defaults to the configured one)")),
	), s.getConnector)

	s.mcp.AddTool(mcp.NewTool("list_filter_options",
		mcp.WithDescription("List the area, vendor and type values that can be used as search filters."),
		mcp.WithString("org", mcp.Description("Registry organization (defaults to the configured one)")),
	), s.listFilterOptions)

	s.mcp.AddTool(mcp.NewTool("get_search_guide",
		mcp.WithDescription("Returns the guide to facets, sorting and paging used by search_connectors."),
	), s.getSearchGuide)

	s.mcp.AddResource(
		mcp.NewResource(searchGuideURI, "Connector Search Guide",
			mcp.WithResourceDescription("How catalog search interprets facets, sorting and paging."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSearchGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchConnectors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	params := models.SearchParams{
		Query:   strings.TrimSpace(req.GetString("query", "")),
		Areas:   req.GetStringSlice("areas", nil),
		Vendors: req.GetStringSlice("vendors", nil),
		Types:   req.GetStringSlice("types", nil),
		Offset:  req.GetInt("offset", 0),
		Limit:   limit,
		Sort:    models.SortOption(req.GetString("sort", "")),
		OrgName: req.GetString("org", ""),
	}

	resp, err := s.svc.Search(ctx, params, req.GetBool("enrich", false))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(s.formatResults(resp)), nil
}

func (s *Server) formatResults(resp models.SearchResponse) string {
	if len(resp.Packages) == 0 {
		if resp.Count > 0 {
			return fmt.Sprintf("no connectors on this page (%d matches in total)", resp.Count)
		}
		return "no connectors found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %s connectors, showing %d-%d:\n",
		catalog.FormatNumber(resp.Count), resp.Offset+1, resp.Offset+len(resp.Packages))
	now := s.now()
	for _, p := range resp.Packages {
		meta := metadata.Parse(p.Keywords)
		fmt.Fprintf(&b, "\n- %s (%s@%s)\n  area: %s | vendor: %s | type: %s | downloads: %s",
			metadata.DisplayName(p.Name, meta.Vendor), p.Name, p.Version,
			meta.Area, meta.Vendor, meta.Type, catalog.FormatPullCount(p.Downloads()))
		if t, ok := p.CreatedDate.Time(); ok {
			fmt.Fprintf(&b, " | published: %s", catalog.FormatDaysSince(t, now))
		}
		if p.Summary != "" {
			fmt.Fprintf(&b, "\n  %s", p.Summary)
		}
	}
	return b.String()
}

func (s *Server) getConnector(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Details(ctx, req.GetString("org", ""), name, req.GetString("version", ""))
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.DisplayName)
	fmt.Fprintf(&b, "Package: %s/%s@%s\n", d.Org, d.Name, d.Version)
	if d.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", d.Summary)
	}
	fmt.Fprintf(&b, "Area: %s | Vendor: %s | Type: %s\n", d.Metadata.Area, d.Metadata.Vendor, d.Metadata.Type)
	fmt.Fprintf(&b, "Downloads: %s\n", catalog.FormatNumber(d.Downloads()))
	if len(d.Versions) > 0 {
		fmt.Fprintf(&b, "Versions: %s\n", strings.Join(d.Versions, ", "))
	}
	if d.DocsURL != "" {
		fmt.Fprintf(&b, "Documentation: %s\n", d.DocsURL)
	}
	if d.Overview != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Overview)
	}
	if d.Setup != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Setup)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listFilterOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := s.svc.Filters(ctx, req.GetString("org", ""))
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(opts, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSearchGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SearchGuide), nil
}

func (s *Server) readSearchGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      searchGuideURI,
			MIMEType: "text/markdown",
			Text:     SearchGuide,
		},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("connector not found")
	case errors.Is(err, apperr.ErrUpstream):
		return mcp.NewToolResultError("the package registry is unavailable, please try again")
	}
	return mcp.NewToolResultError(err.Error())
}
