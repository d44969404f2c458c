package report

import (
	"embed"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lukman83/gunpla-scrap/internal/models"
)

//go:embed templates/report.html.tmpl
var templatesFS embed.FS

var reportTmpl = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{
			"hasLink": func(link string) bool { return link != "" && link != models.NoLink },
		}).
		ParseFS(templatesFS, "templates/report.html.tmpl"),
)

type section struct {
	Site     string
	Products []models.Product
}

type reportData struct {
	Term     string
	Date     string
	Total    int
	Sections []section
}

// RenderHTML writes the HTML report for results to w. Sites without products
// are left out. Every value is escaped by html/template.
func RenderHTML(w io.Writer, term string, results *models.ResultSet, at time.Time) error {
	data := reportData{
		Term:  term,
		Date:  at.Local().Format("2006-01-02 15:04:05"),
		Total: results.Total(),
	}
	for _, s := range results.Sites() {
		if products := results.Get(s); len(products) > 0 {
			data.Sections = append(data.Sections, section{Site: s, Products: products})
		}
	}
	return eris.Wrap(reportTmpl.Execute(w, data), "report: render html")
}

// HTMLFileName is report_<term>_<timestamp>.html.
func HTMLFileName(term string, at time.Time) string {
	return "report_" + TermSlug(term) + "_" + FileTimestamp(at) + ".html"
}

// WriteHTML renders the report into dir and returns its path. Nothing is
// written when the run found no products, and the returned path is empty.
func WriteHTML(dir, term string, results *models.ResultSet, at time.Time) (string, error) {
	if results.Total() == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", dir)
	}

	path := filepath.Join(dir, HTMLFileName(term, at))
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "report: create %s", path)
	}
	if err := RenderHTML(f, term, results, at); err != nil {
		f.Close() //nolint:errcheck
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "report: close %s", path)
	}
	return path, nil
}
