package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukman83/gunpla-scrap/config"
	"github.com/lukman83/gunpla-scrap/internal/fetch"
	"github.com/lukman83/gunpla-scrap/internal/report"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/site"
	"github.com/lukman83/gunpla-scrap/internal/stealth"
	"github.com/lukman83/gunpla-scrap/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "gunpla",
	Short:             "Gunpla Scrap - search Gunpla shops and keep the results",
	Long:              "A CLI, REST API and MCP server that searches several Gunpla model-kit shops one at a time and stores every run in SQLite.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database (default from config)")
	rootCmd.PersistentFlags().String("sites-file", "", "YAML or JSON file listing the sites to search")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for JSON dumps and HTML reports")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, c)
	if err := config.InitLogger(c.Log); err != nil {
		return err
	}
	cfg = c
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if v, _ := flags.GetString("db"); v != "" {
		c.Store.Path = v
	}
	if v, _ := flags.GetString("sites-file"); v != "" {
		c.SitesFile = v
	}
	if v, _ := flags.GetString("data-dir"); v != "" {
		c.DataDir = v
	}
	if v, _ := flags.GetBool("verbose"); v {
		c.Log.Level = "debug"
	}
}

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *site.Registry
	store    *store.SQLiteStore
	scraper  *scraper.Scraper
}

type appOptions struct {
	// withScraper builds the fetcher and orchestrator too.
	withScraper bool
	// dump writes per-site and combined JSON results into the data dir.
	dump bool
}

func newApp(ctx context.Context, c *config.Config, opts appOptions) (*app, error) {
	log := zap.L()

	entries, err := c.SiteEntries()
	if err != nil {
		return nil, err
	}
	registry, err := site.NewRegistry(entries, site.Options{Strict: c.Scrape.StrictSites, Logger: log})
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(c.Store.Path, log)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	if err := st.SyncSites(ctx, registry.All()); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	a := &app{cfg: c, log: log, registry: registry, store: st}
	if !opts.withScraper {
		return a, nil
	}

	fetcher, err := fetch.New(fetch.Options{
		Timeout:       c.Scrape.Timeout(false),
		MaxRedirects:  c.Scrape.MaxRedirects,
		RespectRobots: c.Scrape.RespectRobots,
		ProxyURL:      c.Scrape.ProxyURL,
	})
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	scfg := scraper.Config{
		Registry:   registry,
		Fetcher:    fetcher,
		Store:      st,
		Delay:      stealth.NewCourtesyDelay(stealth.ProfileNormal),
		Logger:     log,
		RunTimeout: c.Scrape.RunTimeout(),
	}
	if opts.dump {
		dumper, err := report.NewJSONDumper(c.DataDir)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		scfg.Dumper = dumper
	}
	a.scraper, err = scraper.New(scfg)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return a, nil
}

// options maps the fast / long-timeout switches to run options.
func (a *app) options(fast, longTimeout bool) scraper.Options {
	return scraper.Options{
		Delay:   a.cfg.Scrape.Delay(fast),
		Timeout: a.cfg.Scrape.Timeout(longTimeout),
	}
}

func (a *app) reportDir() string {
	return filepath.Join(a.cfg.DataDir, "reports")
}

func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		return eris.Wrap(err, "close store")
	}
	_ = a.log.Sync()
	return nil
}
