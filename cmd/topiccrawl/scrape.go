package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/topiccrawl/internal/config"
	"github.com/nao1215/topiccrawl/internal/crawler"
	"github.com/nao1215/topiccrawl/internal/frontier"
	"github.com/nao1215/topiccrawl/internal/model"
	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <base-url>...",
		Short: "Crawl websites and classify their pages",
		Long: `Scrape crawls each base URL breadth-first up to the maximum depth, stores
the text of every page and labels it with a topic.

When a previous crawl of the same base URL was interrupted, the queued URLs
are resumed unless --fresh is given.

Examples:
  # Crawl a site two links deep
  topiccrawl scrape https://example.com

  # Crawl concurrently with 8 pages in flight
  topiccrawl scrape -c 8 https://example.com

  # Crawl three sites at the same time and save the results
  topiccrawl scrape -b 3 -o results.json https://a.example https://b.example https://c.example

  # Use a PostgreSQL frontier
  TOPICCRAWL_POSTGRES_DSN=postgres://localhost/crawl topiccrawl scrape --store postgres https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScrapeCmd,
	}

	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Maximum link distance from each base URL")
	cmd.Flags().BoolP("fresh", "f", false,
		"Start fresh instead of resuming queued URLs from an earlier run")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Pages fetched in parallel per crawl (0 crawls sequentially)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of base URLs crawled at the same time")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("output", "o", "",
		"Write the crawl results as JSON to the specified file")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScrapeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
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

	results, err := runScrape(ctx, cmd.OutOrStdout(), cfg, spider, args, logger)

	if output != "" {
		if werr := saveScrapeResults(ctx, store, results, output); werr != nil {
			return errors.Join(err, werr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", output)
	}

	return err
}

// buildScrapeConfig loads the configuration and applies the flags that were
// set explicitly on the command line.
func buildScrapeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("depth") {
		if cfg.Depth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("fresh") {
		if cfg.StartFresh, err = flags.GetBool("fresh"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// runScrape crawls every base URL and prints one line per root as it
// finishes. It returns the results in input order; the error joins every
// failed root, or is the context error when the crawl was interrupted.
func runScrape(
	ctx context.Context,
	out io.Writer,
	cfg *config.Config,
	spider *crawler.Spider,
	baseURLs []string,
	logger *slog.Logger,
) ([]crawler.BatchResult, error) {
	mode := "sequential"
	if cfg.Concurrency > 0 {
		mode = fmt.Sprintf("concurrent, %d workers", cfg.Concurrency)
	}
	fmt.Fprintf(out, "Starting crawl of %d base URL(s) (depth: %d, %s)...\n\n",
		len(baseURLs), cfg.Depth, mode)

	startTime := time.Now()

	bp := crawler.NewBatchProcessor(spider,
		crawler.WithBatchConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
		crawler.WithPerRootOptions(cfg.CrawlOptionsFor),
	)

	results := make([]crawler.BatchResult, len(baseURLs))
	var (
		mu   sync.Mutex
		errs []error
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, baseURLs, cfg.CrawlOptions(), func(result crawler.BatchResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		results[index] = result
		if result.Err != nil {
			fmt.Fprintf(out, "[%d/%d] %s: failed: %v\n", index+1, len(baseURLs), result.BaseURL, result.Err)
			if !errors.Is(result.Err, context.Canceled) {
				errs = append(errs, fmt.Errorf("%s: %w", result.BaseURL, result.Err))
			}
			return
		}
		fmt.Fprintf(out, "[%d/%d] %s: scraped %d page(s)\n", index+1, len(baseURLs), result.BaseURL, len(result.Scraped))
	})

	elapsed := time.Since(startTime)
	if batchErr != nil {
		fmt.Fprintf(out, "\nCrawl interrupted after %s; run the same command again to resume.\n",
			elapsed.Round(time.Millisecond))
		return results, batchErr
	}
	fmt.Fprintf(out, "\nCrawl completed in %s\n", elapsed.Round(time.Millisecond))

	return results, errors.Join(errs...)
}

// saveScrapeResults writes the stored records of every crawled root to path as JSON.
func saveScrapeResults(ctx context.Context, store frontier.Store, results []crawler.BatchResult, path string) error {
	// The crawl context may already be cancelled; the report should still
	// reflect what was stored.
	ctx = context.WithoutCancel(ctx)

	summaries := make([]*model.CrawlSummary, 0, len(results))
	for _, result := range results {
		if result.BaseURL == "" {
			continue
		}
		summary, err := frontier.Summary(ctx, store, result.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to load results of %s: %w", result.BaseURL, err)
		}
		summaries = append(summaries, summary)
	}

	return writeOutput(path, io.Discard, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(summaries)
	})
}
