package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/store"
)

type tools struct {
	deps Deps
}

func registerTools(s *server.MCPServer, t *tools) {
	// search_products
	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search every configured Gunpla shop for a term, one site at a time, and save the run"),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Search term, e.g. \"RG Gundam\""),
		),
		mcp.WithBoolean("fast",
			mcp.Description("Use the short courtesy delay between sites (default: false)"),
		),
		mcp.WithBoolean("long_timeout",
			mcp.Description("Use the long per-site request timeout (default: false)"),
		),
	)
	s.AddTool(searchTool, t.handleSearchProducts)

	// list_searches
	listTool := mcp.NewTool("list_searches",
		mcp.WithDescription("List recent saved searches, most recent first"),
		mcp.WithNumber("limit",
			mcp.Description("Number of searches (default: 10)"),
		),
	)
	s.AddTool(listTool, t.handleListSearches)

	// get_search
	getTool := mcp.NewTool("get_search",
		mcp.WithDescription("Get a saved search and its products grouped by site"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Search id from list_searches"),
		),
	)
	s.AddTool(getTool, t.handleGetSearch)

	// list_sites
	sitesTool := mcp.NewTool("list_sites",
		mcp.WithDescription("List the shops searched, in visiting order"),
	)
	s.AddTool(sitesTool, t.handleListSites)
}

type searchResult struct {
	RunID        int64             `json:"run_id,omitempty"`
	SearchTerm   string            `json:"search_term"`
	TotalResults int               `json:"total_results"`
	FailedSites  []string          `json:"failed_sites,omitempty"`
	SaveError    string            `json:"save_error,omitempty"`
	Results      *models.ResultSet `json:"results"`
}

func (t *tools) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term := strings.TrimSpace(request.GetString("term", ""))
	if term == "" {
		return mcp.NewToolResultError("term is required"), nil
	}
	opts := t.deps.Options(request.GetBool("fast", false), request.GetBool("long_timeout", false))

	run, err := t.deps.Searcher.RunSearch(ctx, term, opts)
	if err != nil && run == nil {
		return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
	}

	out := searchResult{
		RunID:        run.ID,
		SearchTerm:   run.Term,
		TotalResults: run.Results.Total(),
		Results:      run.Results,
	}
	for _, f := range run.Failures {
		out.FailedSites = append(out.FailedSites, f.Site)
	}
	if run.SaveErr != nil {
		out.SaveError = run.SaveErr.Error()
	}
	if err != nil {
		out.SaveError = fmt.Sprintf("search cut short: %v", err)
	}
	return jsonResult(out)
}

func (t *tools) handleListSearches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := t.deps.Runs.ListRecentRuns(ctx, request.GetInt("limit", store.DefaultListLimit))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
	}
	return jsonResult(runs)
}

func (t *tools) handleGetSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetInt("id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("id is required"), nil
	}

	run, results, err := t.deps.Runs.GetRun(ctx, int64(id))
	if errors.Is(err, store.ErrRunNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("search %d not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get error: %v", err)), nil
	}
	return jsonResult(map[string]any{"search": run, "results": results})
}

type siteInfo struct {
	ID      string `json:"id"`
	BaseURL string `json:"base_url"`
	Kind    string `json:"kind"`
	URLRule string `json:"url_rule"`
}

func (t *tools) handleListSites(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Registry == nil {
		return jsonResult([]siteInfo{})
	}
	sites := make([]siteInfo, 0, t.deps.Registry.Len())
	for _, d := range t.deps.Registry.All() {
		sites = append(sites, siteInfo{
			ID:      d.ID,
			BaseURL: d.BaseURL,
			Kind:    d.Kind.String(),
			URLRule: d.URLRule.Kind.String(),
		})
	}
	return jsonResult(sites)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
