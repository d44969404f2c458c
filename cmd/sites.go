package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lukman83/gunpla-scrap/internal/site"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the shops searched, in visiting order",
	Args:  cobra.NoArgs,
	RunE:  runSites,
}

func init() {
	sitesCmd.Flags().String("format", "table", "Output format: table, json")
	rootCmd.AddCommand(sitesCmd)
}

type siteRow struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	URLRule string `json:"url_rule"`
	BaseURL string `json:"base_url"`
}

func runSites(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")

	entries, err := cfg.SiteEntries()
	if err != nil {
		return err
	}
	registry, err := site.NewRegistry(entries, site.Options{Strict: cfg.Scrape.StrictSites})
	if err != nil {
		return err
	}

	if format == "json" {
		rows := make([]siteRow, 0, registry.Len())
		for _, d := range registry.All() {
			rows = append(rows, siteRow{ID: d.ID, Kind: d.Kind.String(), URLRule: d.URLRule.Kind.String(), BaseURL: d.BaseURL})
		}
		return printJSON(cmd.OutOrStdout(), rows)
	}
	printSites(cmd.OutOrStdout(), registry)
	return nil
}
