package cmd

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lukman83/gunpla-scrap/internal/store"
	"github.com/lukman83/gunpla-scrap/internal/ui"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved searches",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a saved search and its products",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved search and its products",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsListCmd.Flags().Int("limit", store.DefaultListLimit, "Number of searches")
	runsListCmd.Flags().String("format", "table", "Output format: table, json")
	runsShowCmd.Flags().String("format", "text", "Output format: text, json")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	runs, err := a.store.ListRecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if format == "json" {
		return printJSON(cmd.OutOrStdout(), runs)
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	run, results, err := a.store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return printJSON(out, map[string]any{"search": run, "results": results})
	}
	fmt.Fprintln(out, ui.Title.Render(fmt.Sprintf("Search #%d: %q", run.ID, run.SearchTerm)))
	fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("%s, %d results", run.Timestamp, run.TotalResults)))
	fmt.Fprintln(out)
	printProducts(out, results)
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if err := a.store.DeleteRun(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted search #%d\n", id)
	return nil
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, eris.Errorf("invalid search id %q", s)
	}
	return id, nil
}
