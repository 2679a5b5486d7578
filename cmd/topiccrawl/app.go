package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/topiccrawl/internal/classifier"
	"github.com/nao1215/topiccrawl/internal/config"
	"github.com/nao1215/topiccrawl/internal/crawler"
	"github.com/nao1215/topiccrawl/internal/frontier"
	applog "github.com/nao1215/topiccrawl/internal/log"
	"github.com/spf13/cobra"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getStringFlag returns the value of a local or inherited string flag,
// or "" if the command does not define it.
func getStringFlag(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return value
}

// loadConfig builds a Config from the configuration file, the environment
// and the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(getStringFlag(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if driver := getStringFlag(cmd, "store"); driver != "" {
		cfg.StoreDriver = driver
	}
	if dir := getStringFlag(cmd, "db-dir"); dir != "" {
		cfg.DBDir = dir
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// setupLogger creates a structured logger that redacts store credentials and
// the classifier token.
func setupLogger(cfg *config.Config) *slog.Logger {
	return applog.NewLogger(os.Stderr, cfg.Verbose, cfg.ClassifierToken)
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
// Queued URLs stay in the store, so the next run resumes from them.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// openStore opens the frontier store selected by cfg.
func openStore(ctx context.Context, cfg *config.Config) (frontier.Store, error) {
	store, err := frontier.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open frontier store: %w", err)
	}
	return store, nil
}

// newSpider wires the fetcher and the classifier described by cfg onto store.
func newSpider(cfg *config.Config, store frontier.Store, logger *slog.Logger) (*crawler.Spider, error) {
	c, err := classifier.New(cfg.ClassifierConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	fetcher, err := crawler.NewHTTPFetcher(cfg.FetcherOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	opts := []crawler.SpiderOption{
		crawler.WithClassifier(c, cfg.ClassifierWorkers),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithLogger(logger),
	}
	if cfg.SiteConfigs != nil {
		opts = append(opts,
			crawler.WithIgnorePatterns(cfg.SiteConfigs.Defaults.IgnorePatterns),
			crawler.WithFollowPatterns(cfg.SiteConfigs.Defaults.FollowPatterns),
		)
	}

	return crawler.NewSpider(store, fetcher, opts...), nil
}

// writeOutput writes to path, creating parent directories, or to fallback
// when path is empty.
func writeOutput(path string, fallback io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(fallback)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(f); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is more useful
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
