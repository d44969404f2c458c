package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukman83/gunpla-scrap/internal/report"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search [term...]",
	Short: "Search every configured shop for a term",
	Long:  "Visits each configured shop in order, one request at a time with a courtesy delay between sites, then saves the run and writes an HTML report.",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Bool("fast", false, "Short courtesy delay between sites")
	searchCmd.Flags().Bool("long-timeout", false, "Long per-site request timeout")
	searchCmd.Flags().Duration("delay", 0, "Courtesy delay between sites (overrides --fast)")
	searchCmd.Flags().Duration("timeout", 0, "Per-site request timeout (overrides --long-timeout)")
	searchCmd.Flags().Bool("no-dump", false, "Do not write JSON result dumps")
	searchCmd.Flags().Bool("no-report", false, "Do not write the HTML report")
	searchCmd.Flags().Bool("open-report", false, "Open the HTML report when done")
	searchCmd.Flags().String("format", "text", "Output format: text, json")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	term, err := resolveTerm(args, cmd.InOrStdin(), out)
	if err != nil {
		return err
	}
	if term == "" {
		fmt.Fprintln(out, "No search term given.")
		return nil
	}

	fast, _ := cmd.Flags().GetBool("fast")
	longTimeout, _ := cmd.Flags().GetBool("long-timeout")
	delay, _ := cmd.Flags().GetDuration("delay")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	noDump, _ := cmd.Flags().GetBool("no-dump")
	noReport, _ := cmd.Flags().GetBool("no-report")
	openReport, _ := cmd.Flags().GetBool("open-report")
	format, _ := cmd.Flags().GetString("format")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{withScraper: true, dump: !noDump})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	opts := overrideOptions(a.options(fast, longTimeout), delay, timeout)

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Searching %q on %d sites...", term, a.registry.Len()))
	ctx = scraper.WithProgress(ctx, func(p scraper.Progress) {
		spin.Update(progressMessage(term, p))
	})
	run, runErr := a.scraper.RunSearch(ctx, term, opts)
	spin.Stop()
	if run == nil {
		return eris.Wrap(runErr, "search failed")
	}

	switch format {
	case "json":
		if err := printJSON(out, run.Results); err != nil {
			return err
		}
	default:
		printProducts(out, run.Results)
		printSummary(out, run)
	}

	if runErr != nil {
		return eris.Wrap(runErr, "search cut short")
	}
	if noReport {
		return nil
	}
	writeReport(cmd, a, run, openReport)
	return nil
}

// resolveTerm joins args into the term, prompting on in when there are none.
func resolveTerm(args []string, in io.Reader, out io.Writer) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	fmt.Fprint(out, "Enter a search term: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", eris.Wrap(err, "read search term")
	}
	return strings.TrimSpace(line), nil
}

// overrideOptions applies explicit --delay / --timeout values.
func overrideOptions(opts scraper.Options, delay, timeout time.Duration) scraper.Options {
	if delay > 0 {
		opts.Delay = delay
	}
	if timeout > 0 {
		opts.Timeout = timeout
	}
	return opts
}

func progressMessage(term string, p scraper.Progress) string {
	switch p.Stage {
	case scraper.StageSaving:
		return "Saving results..."
	case scraper.StageDone:
		return fmt.Sprintf("[%d/%d] %s: %d found", p.Index, p.Total, p.Site, p.Count)
	case scraper.StageFailed:
		return fmt.Sprintf("[%d/%d] %s: failed", p.Index, p.Total, p.Site)
	default:
		return fmt.Sprintf("[%d/%d] Searching %s for %q...", p.Index, p.Total, p.Site, term)
	}
}

func writeReport(cmd *cobra.Command, a *app, run *scraper.Run, open bool) {
	path, err := report.WriteHTML(a.reportDir(), run.Term, run.Results, run.Started)
	if err != nil {
		a.log.Warn("could not write HTML report", zap.Error(err))
		return
	}
	if path == "" {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", path)
	if !open {
		return
	}
	if err := report.Open(path); err != nil {
		a.log.Warn("could not open report", zap.String("path", path), zap.Error(err))
	}
}
