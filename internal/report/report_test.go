package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/gunpla-scrap/internal/models"
)

var at = time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)

func sampleResults() *models.ResultSet {
	rs := models.NewResultSet("empty_site", "newtype")
	rs.Set("newtype", []models.Product{
		{Title: `<script>alert("x")</script> HG`, Price: "$20", Link: "https://newtype.us/p/hg", Image: "https://newtype.us/hg.jpg", Source: "newtype"},
		{Title: "EG Strike", Price: models.PriceUnavailable, Link: models.NoLink, Source: "newtype"},
	})
	return rs
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, "RG Gundam", sampleResults(), at))
	out := buf.String()

	assert.Contains(t, out, "<strong>Search Term:</strong> RG Gundam")
	assert.Contains(t, out, "<strong>Total Results:</strong> 2")
	assert.Contains(t, out, "newtype (2 results)")
	assert.NotContains(t, out, "empty_site")
	assert.NotContains(t, out, `<script>alert`)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `href="https://newtype.us/p/hg"`)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("View Product")))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`class="result-image"`)))
	assert.Contains(t, out, "Source: newtype")
}

func TestRenderHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, "nothing", models.NewResultSet("a"), at))
	assert.Contains(t, buf.String(), "No results found")
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteHTML(dir, "RG  Gundam", sampleResults(), at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_RG_Gundam_2026-03-01T12-30-05.html"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	path, err = WriteHTML(dir, "none", models.NewResultSet("a"), at)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestJSONDumper(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	d, err := NewJSONDumper(dir)
	require.NoError(t, err)

	rs := sampleResults()
	require.NoError(t, d.DumpSite("newtype", rs.Get("newtype")))
	require.NoError(t, d.DumpSite("empty_site", nil))
	require.NoError(t, d.DumpRun("RG Gundam", rs, at))

	var products []models.Product
	data, err := os.ReadFile(filepath.Join(dir, "newtype.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &products))
	assert.Equal(t, rs.Get("newtype"), products)

	data, err = os.ReadFile(filepath.Join(dir, "empty_site.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "all_results_RG_Gundam_2026-03-01T12-30-05.json"))
	require.NoError(t, err)
	var back models.ResultSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"empty_site", "newtype"}, back.Sites())
}

func TestTermSlug(t *testing.T) {
	assert.Equal(t, "RG_Gundam", TermSlug("RG Gundam"))
	assert.Equal(t, "a_b", TermSlug("  a \t b "))
	assert.Equal(t, "x_y", TermSlug("x/y"))
}

func TestOpenCommand(t *testing.T) {
	assert.Equal(t, []string{"open", "r.html"}, OpenCommand("darwin", "r.html").Args)
	assert.Equal(t, []string{"xdg-open", "r.html"}, OpenCommand("linux", "r.html").Args)
	assert.Equal(t, []string{"cmd", "/c", "start", "", "r.html"}, OpenCommand("windows", "r.html").Args)
}
