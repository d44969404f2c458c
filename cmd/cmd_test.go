package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/gunpla-scrap/internal/fetch"
	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/site"
	"github.com/lukman83/gunpla-scrap/internal/store"
)

func TestResolveTerm(t *testing.T) {
	var out bytes.Buffer

	term, err := resolveTerm([]string{" RG", "Gundam "}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, "RG Gundam", term)
	assert.Empty(t, out.String())

	term, err = resolveTerm(nil, strings.NewReader("  MG Sazabi \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "MG Sazabi", term)
	assert.Contains(t, out.String(), "Enter a search term")

	term, err = resolveTerm(nil, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Empty(t, term)
}

func TestOverrideOptions(t *testing.T) {
	base := scraper.Options{Delay: 2 * time.Second, Timeout: 10 * time.Second}
	assert.Equal(t, base, overrideOptions(base, 0, 0))
	assert.Equal(t, scraper.Options{Delay: time.Second, Timeout: 5 * time.Second},
		overrideOptions(base, time.Second, 5*time.Second))
}

func TestProgressMessage(t *testing.T) {
	assert.Equal(t, `[1/5] Searching newtype for "zaku"...`,
		progressMessage("zaku", scraper.Progress{Site: "newtype", Index: 1, Total: 5, Stage: scraper.StageFetching}))
	assert.Equal(t, "[2/5] ebay: 3 found",
		progressMessage("zaku", scraper.Progress{Site: "ebay", Index: 2, Total: 5, Stage: scraper.StageDone, Count: 3}))
	assert.Equal(t, "[3/5] amazon: failed",
		progressMessage("zaku", scraper.Progress{Site: "amazon", Index: 3, Total: 5, Stage: scraper.StageFailed}))
	assert.Equal(t, "Saving results...", progressMessage("zaku", scraper.Progress{Stage: scraper.StageSaving}))
}

func TestPrintSummary(t *testing.T) {
	results := models.NewResultSet("newtype", "ebay", "amazon")
	results.Set("ebay", []models.Product{{Title: "HG Zaku"}, {Title: "RG Zaku"}})
	results.Set("newtype", []models.Product{{Title: "MG Zaku"}})

	var out bytes.Buffer
	printSummary(&out, &scraper.Run{
		ID:      4,
		Term:    "zaku",
		Results: results,
		Failures: []scraper.SiteFailure{
			{Site: "amazon", Kind: fetch.KindUpstreamHTTP, StatusCode: 503},
		},
	})
	text := out.String()
	assert.Contains(t, text, "Total results: 3 from 2 sites")
	assert.Contains(t, text, "amazon")
	assert.Contains(t, text, "status 503")
	assert.Contains(t, text, "Saved as search #4")
	assert.NotContains(t, text, "not saved")

	out.Reset()
	printSummary(&out, &scraper.Run{Term: "zaku", Results: results, SaveErr: errors.New("disk full")})
	assert.Contains(t, out.String(), "Results were not saved: disk full")
}

func TestPrintProducts_SkipsEmptySitesAndMissingLinks(t *testing.T) {
	results := models.NewResultSet("newtype", "ebay")
	results.Set("ebay", []models.Product{
		{Title: "HG Zaku", Price: "$20", Link: models.NoLink},
		{Title: "RG Zaku", Price: "$30", Link: "https://www.ebay.com/itm/1"},
	})

	var out bytes.Buffer
	printProducts(&out, results)
	text := out.String()
	assert.NotContains(t, text, "newtype")
	assert.Contains(t, text, "ebay (2)")
	assert.Contains(t, text, " 1. HG Zaku")
	assert.Contains(t, text, "https://www.ebay.com/itm/1")
	assert.NotContains(t, text, "    #\n")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
}

func TestParseRunID(t *testing.T) {
	id, err := parseRunID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"", "0", "-1", "x"} {
		_, err := parseRunID(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "runs", "sites", "serve", "mcp"} {
		assert.True(t, names[want], want)
	}
}

func TestRunsList_JSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "cli.db")

	st, err := store.NewSQLite(dbPath, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.SyncSites(ctx, []site.Descriptor{{ID: "ebay", BaseURL: "https://www.ebay.com/sch/i.html?_nkw="}}))
	results := models.NewResultSet("ebay")
	results.Set("ebay", []models.Product{{Title: "HG Zaku", Price: "$20", Link: "#", Source: "ebay"}})
	_, err = st.SaveRun(ctx, "zaku", results)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"runs", "list", "--db", dbPath, "--format", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var runs []models.SearchRun
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "zaku", runs[0].SearchTerm)
	assert.Equal(t, 1, runs[0].TotalResults)
}
