package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lukman83/gunpla-scrap/internal/models"
)

var spaceRun = regexp.MustCompile(`\s+`)

// TermSlug replaces whitespace runs and path separators in term with "_".
func TermSlug(term string) string {
	slug := spaceRun.ReplaceAllString(strings.TrimSpace(term), "_")
	return strings.NewReplacer("/", "_", `\`, "_").Replace(slug)
}

// FileTimestamp formats t for use in file names, e.g. 2026-03-01T12-30-00.
func FileTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05")
}

// JSONDumper writes per-site and combined results as indented JSON files.
type JSONDumper struct {
	Dir string
}

// NewJSONDumper returns a dumper writing into dir, creating it if needed.
func NewJSONDumper(dir string) (*JSONDumper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create %s", dir)
	}
	return &JSONDumper{Dir: dir}, nil
}

// DumpSite writes <dir>/<site>.json, replacing the previous dump.
func (d *JSONDumper) DumpSite(site string, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}
	return d.write(TermSlug(site)+".json", products)
}

// DumpRun writes <dir>/all_results_<term>_<timestamp>.json.
func (d *JSONDumper) DumpRun(term string, results *models.ResultSet, at time.Time) error {
	if results == nil {
		results = models.NewResultSet()
	}
	return d.write("all_results_"+TermSlug(term)+"_"+FileTimestamp(at)+".json", results)
}

func (d *JSONDumper) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "report: encode %s", name)
	}
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
