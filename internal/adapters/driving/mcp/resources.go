package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for vidrag resources.
const uriScheme = "vidrag://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Knowledge base size and configuration",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "pages",
		Name:        "pages",
		Description: "Generated support pages",
		MIMEType:    "application/json",
	}, s.handlePagesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "pages/{name}",
		Name:        "page-content",
		Description: "Markdown of one generated support page",
		MIMEType:    "text/markdown",
	}, s.handlePageContentResource)
}

// statsOutput is the body of the stats resource. Records is -1 when the
// backend cannot count.
type statsOutput struct {
	Info
	Records int `json:"records"`
}

func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats := statsOutput{Info: s.ports.Info, Records: -1}
	if s.ports.Counter != nil {
		n, err := s.ports.Counter.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting records: %w", err)
		}
		stats.Records = n
	}
	return jsonResult(req.Params.URI, stats)
}

func (s *Server) handlePagesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type pageInfo struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	}

	pages := []pageInfo{}
	if s.ports.ContentDir != "" {
		entries, err := os.ReadDir(s.ports.ContentDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("listing pages: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
				continue
			}
			pages = append(pages, pageInfo{Name: e.Name(), URI: uriScheme + "pages/" + e.Name()})
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })

	return jsonResult(req.Params.URI, pages)
}

func (s *Server) handlePageContentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractPageName(req.Params.URI)
	if name == "" || s.ports.ContentDir == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := os.ReadFile(filepath.Join(s.ports.ContentDir, name))
	if os.IsNotExist(err) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     string(data),
		}},
	}, nil
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractPageName extracts the file name from vidrag://pages/{name}.
// Names that could escape the content directory are rejected.
func extractPageName(uri string) string {
	const prefix = uriScheme + "pages/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ""
	}
	if !strings.EqualFold(filepath.Ext(name), ".md") {
		return ""
	}
	return name
}
