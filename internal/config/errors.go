package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be zero or greater")

	// ErrInvalidConcurrency is returned when the concurrency is negative.
	// Zero selects the sequential crawler.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be zero or greater")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRequestRate is returned when the per-host request rate is negative.
	ErrInvalidRequestRate = errors.New("invalid requests per second: must be non-negative")

	// ErrInvalidClassifierWorkers is returned when the classifier worker count is not positive.
	ErrInvalidClassifierWorkers = errors.New("invalid classifier workers: must be positive")

	// ErrUnknownStoreDriver is returned for a store driver other than sqlite, postgres or mongo.
	ErrUnknownStoreDriver = errors.New("unknown store driver: use sqlite, postgres or mongo")

	// ErrMissingPostgresDSN is returned when the postgres driver has no DSN.
	ErrMissingPostgresDSN = errors.New("postgres store requires a DSN (store.postgres_dsn or TOPICCRAWL_POSTGRES_DSN)")

	// ErrMissingMongoURI is returned when the mongo driver has no URI.
	ErrMissingMongoURI = errors.New("mongo store requires a URI (store.mongo_uri or TOPICCRAWL_MONGO_URI)")
)
