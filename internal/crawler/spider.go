package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/topiccrawl/internal/classifier"
	"github.com/nao1215/topiccrawl/internal/frontier"
	"github.com/nao1215/topiccrawl/internal/model"
)

// Validation errors. They are returned before anything is persisted.
var (
	// ErrInvalidDepth is returned for a negative maximum depth.
	ErrInvalidDepth = errors.New("max depth must be zero or greater")

	// ErrInvalidURL is returned when the seed is not an absolute URL.
	ErrInvalidURL = errors.New("base url must be an absolute URL with scheme and host")

	// ErrInvalidConcurrency is returned when the concurrency limit is below one.
	ErrInvalidConcurrency = errors.New("max concurrency must be at least 1")
)

// Spider crawls a site breadth first, persisting every discovered URL in a
// frontier store so that an interrupted crawl can be resumed.
//
// A Spider holds only injected collaborators and settings. The visited and
// scraped sets live in a per-invocation session, so one Spider may run
// several crawls at the same time.
type Spider struct {
	// store persists the frontier.
	store frontier.Store

	// fetcher retrieves pages.
	fetcher Fetcher

	// classifier labels page text. Calls go through a bounded worker pool.
	classifier *classifier.Pool

	// topicModel and workers build classifier once the logger is known.
	topicModel classifier.Classifier
	workers    int

	// delay is the politeness pause between requests.
	delay time.Duration

	// ignorePatterns are URL path patterns whose links are not followed.
	ignorePatterns []string

	// followPatterns restrict followed links to matching paths when non-empty.
	followPatterns []string

	// logger receives crawl progress.
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithClassifier sets the topic classifier and the number of classifications
// that may run at once.
func WithClassifier(c classifier.Classifier, workers int) SpiderOption {
	return func(s *Spider) {
		s.topicModel = c
		s.workers = workers
	}
}

// WithLogger sets the logger for crawl progress.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// Links matching any of these patterns are recorded on the page but not followed.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only links whose path matches at least one pattern are followed.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider backed by store and fetcher.
// Without WithClassifier, pages are labelled by the default keyword classifier.
func NewSpider(store frontier.Store, fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		store:   store,
		fetcher: fetcher,
		delay:   0,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.topicModel == nil {
		s.topicModel = classifier.NewKeyword()
		s.workers = 1
	}
	s.classifier = classifier.NewPool(s.topicModel, s.workers, s.logger)

	return s
}

// Classifier returns the bounded classifier pool used by the spider.
func (s *Spider) Classifier() *classifier.Pool {
	return s.classifier
}

// Store returns the frontier store used by the spider.
func (s *Spider) Store() frontier.Store {
	return s.store
}

// validate checks the arguments shared by both crawl modes.
func validate(baseURL string, maxDepth int) error {
	if maxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}
	if !model.IsAbsoluteURL(baseURL) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	return nil
}

// session is the state of one crawl invocation.
// Its sets are guarded by mu because concurrent units share them.
type session struct {
	id       string
	baseURL  string
	maxDepth int
	started  time.Time
	logger   *slog.Logger

	// async runs classification on the pool's goroutines.
	async bool

	mu      sync.Mutex
	visited map[string]struct{}
	scraped map[string]struct{}
}

// newSession starts a crawl invocation with a fresh run ID.
func (s *Spider) newSession(baseURL string, maxDepth int, mode string) *session {
	id := uuid.NewString()
	return &session{
		id:       id,
		baseURL:  baseURL,
		maxDepth: maxDepth,
		started:  time.Now(),
		logger:   s.logger.With("run", id, "base_url", baseURL, "mode", mode),
		visited:  make(map[string]struct{}),
		scraped:  make(map[string]struct{}),
	}
}

// tryVisit marks url visited and reports whether this call was the first.
func (ss *session) tryVisit(pageURL string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.visited[pageURL]; ok {
		return false
	}
	ss.visited[pageURL] = struct{}{}
	return true
}

// isVisited reports whether url was already visited in this session.
func (ss *session) isVisited(pageURL string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	_, ok := ss.visited[pageURL]
	return ok
}

// addScraped records a successfully fetched url.
func (ss *session) addScraped(pageURL string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.scraped[pageURL] = struct{}{}
}

// result returns a copy of the scraped set.
func (ss *session) result() map[string]struct{} {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make(map[string]struct{}, len(ss.scraped))
	for u := range ss.scraped {
		out[u] = struct{}{}
	}
	return out
}

// finish logs the outcome of the session.
func (ss *session) finish(err error) {
	ss.mu.Lock()
	visited, scraped := len(ss.visited), len(ss.scraped)
	ss.mu.Unlock()

	attrs := []any{
		"visited", visited,
		"scraped", scraped,
		"elapsed", time.Since(ss.started).Round(time.Millisecond),
	}
	if err != nil {
		ss.logger.Error("crawl aborted", append(attrs, "error", err)...)
		return
	}
	ss.logger.Info("crawl finished", attrs...)
}

// initialWork returns the work list a crawl starts from: the seed when
// starting fresh, otherwise the recovered queued rows, or the seed when
// nothing is left to recover. A resume also marks every completed row
// visited.
func (s *Spider) initialWork(ctx context.Context, ss *session, startFresh bool) ([]model.PendingURL, error) {
	if startFresh {
		return []model.PendingURL{model.Seed(ss.baseURL)}, nil
	}

	pending, err := s.store.RecoverPending(ctx, ss.baseURL)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return []model.PendingURL{model.Seed(ss.baseURL)}, nil
	}

	// Completed rows from earlier runs count as visited so that links to
	// them are not fetched again.
	records, err := s.store.AllRecords(ctx, ss.baseURL)
	if err != nil {
		return nil, err
	}
	done := 0
	ss.mu.Lock()
	for _, r := range records {
		if r.Status == model.StatusCompleted {
			ss.visited[r.URL] = struct{}{}
			done++
		}
	}
	ss.mu.Unlock()

	ss.logger.Info("resuming crawl", "pending", len(pending), "completed", done)
	return pending, nil
}

// process fetches one already-enqueued item and writes the outcome to the
// store. It returns the item's children when depth allows, or nil when the
// fetch failed. The returned error is always fatal.
func (s *Spider) process(ctx context.Context, ss *session, item model.PendingURL) ([]model.PendingURL, error) {
	logger := ss.logger.With("url", item.URL, "depth", item.Depth)

	result, err := s.fetchAndParse(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			// Leave the row queued so the next run resumes it.
			return nil, ctx.Err()
		}
		logger.Warn("fetch failed", "error", err)
		if err := s.store.MarkCompletedEmpty(ctx, ss.baseURL, item.URL); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var topic string
	if ss.async {
		topic = <-s.classifier.ClassifyAsync(ctx, result.Text)
	} else {
		topic = s.classifier.Classify(ctx, result.Text)
	}

	page := model.CompletedPage{
		URL:          item.URL,
		SourceURL:    item.SourceURL,
		Depth:        item.Depth,
		Title:        result.Title,
		LinksToTexts: result.Links,
		Topic:        topic,
	}
	if err := s.store.CompleteWithContent(ctx, ss.baseURL, page); err != nil {
		return nil, err
	}
	ss.addScraped(item.URL)
	logger.Debug("page scraped", "title", result.Title, "topic", topic, "links", len(result.Links))

	if item.Depth >= ss.maxDepth {
		return nil, nil
	}

	children := make([]model.PendingURL, 0, len(result.Links))
	for _, link := range slices.Sorted(maps.Keys(result.Links)) {
		if ss.isVisited(link) || !s.shouldCrawl(link) {
			continue
		}
		children = append(children, item.Child(link))
	}
	return children, nil
}

// fetchAndParse fetches pageURL and extracts its content.
func (s *Spider) fetchAndParse(ctx context.Context, pageURL string) (*ParseResult, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	parser, err := NewParser(pageURL)
	if err != nil {
		return nil, err
	}
	return parser.Parse(bytes.NewReader(page.Body))
}

// wait blocks for the politeness delay or until ctx is done.
func (s *Spider) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (s *Spider) shouldCrawl(targetURL string) bool {
	if len(s.ignorePatterns) == 0 && len(s.followPatterns) == 0 {
		return true
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
