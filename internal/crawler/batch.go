package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// CrawlOptions are the per-root parameters of a batch crawl.
type CrawlOptions struct {
	// MaxDepth is the maximum link distance from each root.
	MaxDepth int

	// MaxConcurrency selects the concurrent crawler when positive and caps
	// its in-flight pages. Zero selects the sequential crawler.
	MaxConcurrency int

	// StartFresh ignores queued rows left by earlier runs.
	StartFresh bool

	// IgnorePatterns replaces the spider's ignore patterns for this crawl when non-nil.
	IgnorePatterns []string

	// FollowPatterns replaces the spider's follow patterns for this crawl when non-nil.
	FollowPatterns []string
}

// BatchResult is the outcome of crawling one root.
type BatchResult struct {
	// BaseURL is the crawl root.
	BaseURL string

	// Scraped is the set of URLs whose content was stored.
	Scraped map[string]struct{}

	// Err is the crawl error, nil on success.
	Err error
}

// Crawl runs the sequential or the concurrent crawler for one root,
// depending on opts.MaxConcurrency.
func (s *Spider) Crawl(ctx context.Context, baseURL string, opts CrawlOptions) (map[string]struct{}, error) {
	sp := s.withPatterns(opts)
	if opts.MaxConcurrency > 0 {
		return sp.ScrapeConcurrent(ctx, baseURL, opts.MaxDepth, opts.MaxConcurrency, opts.StartFresh)
	}
	return sp.Scrape(ctx, baseURL, opts.MaxDepth, opts.StartFresh)
}

// withPatterns returns s, or a shallow copy of s carrying the patterns of opts.
func (s *Spider) withPatterns(opts CrawlOptions) *Spider {
	if opts.IgnorePatterns == nil && opts.FollowPatterns == nil {
		return s
	}
	clone := *s
	if opts.IgnorePatterns != nil {
		clone.ignorePatterns = opts.IgnorePatterns
	}
	if opts.FollowPatterns != nil {
		clone.followPatterns = opts.FollowPatterns
	}
	return &clone
}

// BatchProcessor crawls several independent roots at the same time.
// Each root runs in its own session; a failing root does not cancel the others.
type BatchProcessor struct {
	// spider performs each crawl.
	spider *Spider

	// concurrency is the maximum number of roots crawled at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// perRoot adjusts the crawl options of individual roots.
	perRoot func(baseURL string, opts CrawlOptions) CrawlOptions
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets the maximum number of roots crawled at once.
// Default is 1 if not specified.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithPerRootOptions sets a function that adjusts the crawl options of each
// root, for example to apply a per-site depth.
func WithPerRootOptions(fn func(baseURL string, opts CrawlOptions) CrawlOptions) BatchOption {
	return func(b *BatchProcessor) {
		b.perRoot = fn
	}
}

// NewBatchProcessor creates a BatchProcessor that crawls with spider.
func NewBatchProcessor(spider *Spider, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		spider:      spider,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every root and returns one result per root, in input order.
// The returned error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, baseURLs []string, opts CrawlOptions) ([]BatchResult, error) {
	results := make([]BatchResult, len(baseURLs))
	err := bp.ProcessBatchWithCallback(ctx, baseURLs, opts, func(result BatchResult, index int) {
		results[index] = result
	})
	return results, err
}

// ProcessBatchWithCallback crawls every root and calls callback as each one
// finishes. The callback is called from the crawling goroutine, so it must be
// safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	baseURLs []string,
	opts CrawlOptions,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch crawl",
		"roots", len(baseURLs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, baseURL := range baseURLs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(BatchResult{BaseURL: baseURL, Err: err}, i)
				return nil
			}

			rootOpts := opts
			if bp.perRoot != nil {
				rootOpts = bp.perRoot(baseURL, opts)
			}

			scraped, err := bp.spider.Crawl(ctx, baseURL, rootOpts)
			if err != nil {
				bp.logger.Warn("crawl failed", "base_url", baseURL, "error", err)
			}
			callback(BatchResult{BaseURL: baseURL, Scraped: scraped, Err: err}, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // units never return errors; failures are reported per root

	bp.logger.Info("batch crawl complete",
		"roots", len(baseURLs),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}
