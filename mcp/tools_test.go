package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/site"
	"github.com/lukman83/gunpla-scrap/internal/store"
)

type fakeSearcher struct {
	mu   sync.Mutex
	opts []scraper.Options
	run  *scraper.Run
	err  error
}

func (f *fakeSearcher) RunSearch(_ context.Context, term string, opts scraper.Options) (*scraper.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	if f.run != nil {
		f.run.Term = term
	}
	return f.run, f.err
}

func newTestTools(t *testing.T, s Searcher) (*tools, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "mcp.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	reg, err := site.NewRegistry(site.DefaultEntries(), site.Options{})
	require.NoError(t, err)
	require.NoError(t, st.SyncSites(ctx, reg.All()))

	return &tools{deps: Deps{
		Searcher: s,
		Runs:     st,
		Registry: reg,
		Options: func(fast, long bool) scraper.Options {
			opts := scraper.Options{Delay: 2 * time.Second, Timeout: 10 * time.Second}
			if fast {
				opts.Delay = 500 * time.Millisecond
			}
			if long {
				opts.Timeout = 30 * time.Second
			}
			return opts
		},
	}}, st
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestSearchProducts(t *testing.T) {
	results := models.NewResultSet("newtype", "ebay")
	results.Set("ebay", []models.Product{{Title: "RG Zaku", Price: "$30", Link: "#", Source: "ebay"}})
	fs := &fakeSearcher{run: &scraper.Run{
		ID:       7,
		Results:  results,
		Failures: []scraper.SiteFailure{{Site: "newtype"}},
	}}
	tl, _ := newTestTools(t, fs)

	res, err := tl.handleSearchProducts(context.Background(), callRequest("search_products", map[string]any{
		"term": "  zaku ",
		"fast": true,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out struct {
		RunID        int64             `json:"run_id"`
		SearchTerm   string            `json:"search_term"`
		TotalResults int               `json:"total_results"`
		FailedSites  []string          `json:"failed_sites"`
		Results      *models.ResultSet `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, int64(7), out.RunID)
	assert.Equal(t, "zaku", out.SearchTerm)
	assert.Equal(t, 1, out.TotalResults)
	assert.Equal(t, []string{"newtype"}, out.FailedSites)
	assert.Equal(t, []string{"newtype", "ebay"}, out.Results.Sites())

	require.Len(t, fs.opts, 1)
	assert.Equal(t, scraper.Options{Delay: 500 * time.Millisecond, Timeout: 10 * time.Second}, fs.opts[0])
}

func TestSearchProducts_RequiresTerm(t *testing.T) {
	fs := &fakeSearcher{}
	tl, _ := newTestTools(t, fs)

	res, err := tl.handleSearchProducts(context.Background(), callRequest("search_products", map[string]any{"term": "   "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, fs.opts)
}

func TestSearchProducts_Error(t *testing.T) {
	tl, _ := newTestTools(t, &fakeSearcher{err: context.Canceled})

	res, err := tl.handleSearchProducts(context.Background(), callRequest("search_products", map[string]any{"term": "zaku"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "context canceled")
}

func TestListAndGetSearches(t *testing.T) {
	tl, st := newTestTools(t, &fakeSearcher{})
	ctx := context.Background()

	results := models.NewResultSet("newtype", "ebay")
	results.Set("newtype", []models.Product{{Title: "MG Sazabi", Price: "$80", Link: "#", Source: "newtype"}})
	id, err := st.SaveRun(ctx, "sazabi", results)
	require.NoError(t, err)
	_, err = st.SaveRun(ctx, "nu", models.NewResultSet("newtype"))
	require.NoError(t, err)

	res, err := tl.handleListSearches(ctx, callRequest("list_searches", map[string]any{"limit": 1}))
	require.NoError(t, err)
	var runs []models.SearchRun
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "nu", runs[0].SearchTerm)

	res, err = tl.handleGetSearch(ctx, callRequest("get_search", map[string]any{"id": float64(id)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	var detail struct {
		Search  models.SearchRun `json:"search"`
		Results models.ResultSet `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &detail))
	assert.Equal(t, "sazabi", detail.Search.SearchTerm)
	assert.Len(t, detail.Results.Get("newtype"), 1)

	res, err = tl.handleGetSearch(ctx, callRequest("get_search", map[string]any{"id": 999}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")

	res, err = tl.handleGetSearch(ctx, callRequest("get_search", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListSites(t *testing.T) {
	tl, _ := newTestTools(t, &fakeSearcher{})

	res, err := tl.handleListSites(context.Background(), callRequest("list_sites", nil))
	require.NoError(t, err)
	var sites []siteInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &sites))

	require.Len(t, sites, len(site.DefaultEntries()))
	for i, e := range site.DefaultEntries() {
		assert.Equal(t, e.ID, sites[i].ID)
	}
}

func TestNewServer_ListsTools(t *testing.T) {
	tl, _ := newTestTools(t, &fakeSearcher{})
	s := NewServer(tl.deps)

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"search_products", "list_searches", "get_search", "list_sites"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}
