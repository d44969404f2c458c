package mcp

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/site"
)

const (
	serverName    = "gunpla-scrap"
	serverVersion = "1.0.0"
)

// Searcher runs a search to completion.
type Searcher interface {
	RunSearch(ctx context.Context, term string, opts scraper.Options) (*scraper.Run, error)
}

// RunReader reads persisted runs.
type RunReader interface {
	GetRun(ctx context.Context, id int64) (*models.SearchRun, *models.ResultSet, error)
	ListRecentRuns(ctx context.Context, limit int) ([]models.SearchRun, error)
}

// Deps wires the MCP tools.
type Deps struct {
	Searcher Searcher
	Runs     RunReader
	Registry *site.Registry
	Options  func(fast, longTimeout bool) scraper.Options
}

// NewServer returns an MCP server with every tool registered.
func NewServer(d Deps) *server.MCPServer {
	if d.Options == nil {
		d.Options = func(bool, bool) scraper.Options { return scraper.Options{} }
	}
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, &tools{deps: d})
	return s
}

// Serve starts the MCP stdio server.
func Serve(d Deps) error {
	return server.ServeStdio(NewServer(d))
}

// HTTPHandler serves the MCP server over streamable HTTP. Mount it at /mcp.
func HTTPHandler(d Deps) http.Handler {
	return server.NewStreamableHTTPServer(NewServer(d), server.WithStateLess(true))
}
