package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/topiccrawl/internal/api"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve starts an HTTP API that exposes crawling, crawl status, results
and the classifier label set as JSON endpoints:

  GET  /health
  POST /scrape       synchronous crawl
  POST /ascrape      concurrent crawl
  GET  /status?base_url=...
  GET  /results?base_url=...
  GET  /topics
  POST /topics       replace the label set
  POST /classify     label a text and report per-label scores

The server shuts down gracefully on SIGINT or SIGTERM.

Example:
  topiccrawl serve --addr 127.0.0.1:8000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", "", "Listen address (default: 127.0.0.1:8000)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("addr") {
		if cfg.ServerAddr, err = cmd.Flags().GetString("addr"); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	spider, err := newSpider(cfg, store, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving topiccrawl API on http://%s\n", cfg.ServerAddr)

	server := api.NewServer(spider, api.WithServerLogger(logger))
	if err := server.Run(ctx, cfg.ServerAddr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
