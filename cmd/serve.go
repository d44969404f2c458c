package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukman83/gunpla-scrap/api"
	mcpserver "github.com/lukman83/gunpla-scrap/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API with the MCP endpoint at /mcp",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().String("api-key", "", "Require this Bearer token on /api and /mcp (default from config)")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}

func (a *app) mcpDeps() mcpserver.Deps {
	return mcpserver.Deps{
		Searcher: a.scraper,
		Runs:     a.store,
		Registry: a.registry,
		Options:  a.options,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.Server.APIKey = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{withScraper: true, dump: true})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	router := api.NewRouter(api.Deps{
		Searcher:      a.scraper,
		Runs:          a.store,
		Options:       a.options,
		Logger:        a.log,
		RatePerSecond: cfg.Server.RatePerSecond,
		RateBurst:     cfg.Server.RateBurst,
		APIKey:        cfg.Server.APIKey,
		MCP:           mcpserver.HTTPHandler(a.mcpDeps()),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("auth", cfg.Server.APIKey != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg, appOptions{withScraper: true, dump: true})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Gunpla Scrap MCP server on stdio...")
	if err := mcpserver.Serve(a.mcpDeps()); err != nil {
		return eris.Wrap(err, "mcp server")
	}
	return nil
}
