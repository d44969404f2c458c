package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/site"
	"github.com/lukman83/gunpla-scrap/internal/ui"
)

// printProducts prints every site's products in a card layout, in site order.
func printProducts(w io.Writer, results *models.ResultSet) {
	for _, id := range results.Sites() {
		products := results.Get(id)
		if len(products) == 0 {
			continue
		}
		fmt.Fprintln(w, ui.Title.Render(fmt.Sprintf("%s (%d)", id, len(products))))
		for i, p := range products {
			fmt.Fprintf(w, " %d. %s\n", i+1, truncate(p.Title, 80))
			fmt.Fprintf(w, "    Price: %s\n", p.Price)
			if p.Link != models.NoLink {
				fmt.Fprintf(w, "    %s\n", p.Link)
			}
		}
		fmt.Fprintln(w)
	}
}

// printSummary prints per-site counts and the run total. Scrape failures and
// the persistence failure are reported separately.
func printSummary(w io.Writer, run *scraper.Run) {
	fmt.Fprintln(w, ui.Title.Render(fmt.Sprintf("Results for %q", run.Term)))
	for _, id := range run.Results.Sites() {
		fmt.Fprintf(w, "  %s\n", ui.SiteCount(id, len(run.Results.Get(id))))
	}
	fmt.Fprintf(w, "\nTotal results: %d from %d sites\n", run.Results.Total(), run.Results.SitesWithResults())

	if len(run.Failures) > 0 {
		fmt.Fprintln(w, ui.Warning.Render(fmt.Sprintf("%d site(s) could not be searched:", len(run.Failures))))
		for _, f := range run.Failures {
			line := fmt.Sprintf("  %s: %s", f.Site, f.Kind)
			if f.StatusCode != 0 {
				line += fmt.Sprintf(" (status %d)", f.StatusCode)
			}
			fmt.Fprintln(w, ui.Muted.Render(line))
		}
	}

	switch {
	case run.SaveErr != nil:
		fmt.Fprintln(w, ui.Error.Render("Results were not saved: "+run.SaveErr.Error()))
	case run.ID != 0:
		fmt.Fprintln(w, ui.Muted.Render(fmt.Sprintf("Saved as search #%d", run.ID)))
	}
}

func printRuns(w io.Writer, runs []models.SearchRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No searches yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTERM\tTIMESTAMP\tRESULTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", r.ID, truncate(r.SearchTerm, 40), r.Timestamp, r.TotalResults)
	}
	tw.Flush() //nolint:errcheck
}

func printSites(w io.Writer, registry *site.Registry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tURL RULE\tBASE URL")
	for _, d := range registry.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Kind, d.URLRule.Kind, d.BaseURL)
	}
	tw.Flush() //nolint:errcheck
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
