package frontier

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/topiccrawl/internal/model"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown frontier backend")

	// ErrInvalidStatus is returned when a stored row carries a status other
	// than queued or completed.
	ErrInvalidStatus = errors.New("invalid record status")
)

// Store persists the crawl frontier.
//
// Implementations must be safe for concurrent use: the concurrent crawler
// calls every method from many goroutines at once.
type Store interface {
	// Enqueue records url as queued under baseURL unless a row for
	// (baseURL, url) already exists, in which case it does nothing.
	Enqueue(ctx context.Context, baseURL, url string, sourceURL *string, depth int) error

	// CompleteWithContent stores the fetched content of a page and marks it
	// completed. A missing row is inserted; an existing row keeps its depth
	// and source URL.
	CompleteWithContent(ctx context.Context, baseURL string, page model.CompletedPage) error

	// MarkCompletedEmpty marks an existing row completed without content.
	// It does nothing if the row does not exist.
	MarkCompletedEmpty(ctx context.Context, baseURL, url string) error

	// RecoverPending returns every queued row of baseURL ordered by depth,
	// then URL.
	RecoverPending(ctx context.Context, baseURL string) ([]model.PendingURL, error)

	// AllRecords returns every row of baseURL ordered by depth, then URL.
	AllRecords(ctx context.Context, baseURL string) ([]model.URLRecord, error)

	// BaseURLs returns every crawl root that has at least one row.
	BaseURLs(ctx context.Context) ([]string, error)

	// Purge deletes every row of baseURL.
	Purge(ctx context.Context, baseURL string) error

	// Close releases the underlying connection.
	Close() error
}

// Summary loads every record of baseURL and derives the crawl status.
func Summary(ctx context.Context, store Store, baseURL string) (*model.CrawlSummary, error) {
	records, err := store.AllRecords(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return model.NewCrawlSummary(baseURL, records), nil
}

// normalizeTopic returns the default topic for an empty label.
func normalizeTopic(topic string) string {
	if topic == "" {
		return model.DefaultTopic
	}
	return topic
}

// normalizeLinks returns a non-nil map so that every backend serializes an
// empty link set as {} rather than null.
func normalizeLinks(links map[string]string) map[string]string {
	if links == nil {
		return map[string]string{}
	}
	return links
}

// parseStatus converts a stored status column.
func parseStatus(s string) (model.Status, error) {
	status := model.Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}
