package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/topiccrawl/internal/classifier"
	"github.com/nao1215/topiccrawl/internal/crawler"
	"github.com/nao1215/topiccrawl/internal/frontier"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "topiccrawl"

	// DefaultUserAgent identifies the crawler in HTTP requests so that site
	// operators can recognize its traffic.
	DefaultUserAgent = "topiccrawl/1.0 (+https://github.com/nao1215/topiccrawl)"

	// DefaultDepth is the link distance crawled from each root.
	DefaultDepth = 2

	// DefaultConcurrency selects the sequential crawler.
	DefaultConcurrency = 0

	// DefaultBatchSize is the number of roots crawled at once.
	DefaultBatchSize = 1

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDelay is the politeness pause before each request.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxConnsPerHost caps parallel connections to one host.
	DefaultMaxConnsPerHost = 5

	// DefaultClassifierWorkers allows one classification at a time.
	DefaultClassifierWorkers = 1

	// DefaultClassifierTimeout bounds one remote classification.
	DefaultClassifierTimeout = 30 * time.Second

	// DefaultServerAddr is the listen address of the HTTP API.
	DefaultServerAddr = "127.0.0.1:8000"

	// DefaultPostgresMaxConns is the Postgres pool size.
	DefaultPostgresMaxConns = 4
)

// Config holds all configuration options for topiccrawl.
// It is populated from defaults, the .topiccrawl file, the environment and
// CLI flags, in that order, and passed through the application rather than
// kept in global state.
type Config struct {
	// Depth is the maximum link distance from each root.
	// Depth 0 fetches only the root page.
	Depth int

	// Concurrency caps in-flight pages per root. Zero selects the
	// sequential crawler.
	Concurrency int

	// BatchSize is the number of roots crawled at once.
	BatchSize int

	// StartFresh ignores queued rows left by earlier runs.
	StartFresh bool

	// CrawlDelay is the delay before each request.
	CrawlDelay time.Duration

	// Timeout bounds each page fetch.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes.
	// Zero uses the fetcher default.
	MaxBodySize int64

	// MaxConnsPerHost caps parallel connections to one host.
	MaxConnsPerHost int

	// RequestsPerSecond limits requests per host. Zero disables the limit.
	RequestsPerSecond float64

	// ProxyAddress routes fetches through a SOCKS5 proxy when set.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with each fetch.
	UserAgent string

	// StoreDriver selects the frontier backend: sqlite, postgres or mongo.
	StoreDriver string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/topiccrawl on Linux).
	DBDir string

	// PostgresDSN is the Postgres connection string.
	PostgresDSN string

	// PostgresMaxConns caps the Postgres connection pool.
	PostgresMaxConns int32

	// MongoURI is the MongoDB connection URI.
	MongoURI string

	// MongoDatabase is the MongoDB database name.
	MongoDatabase string

	// Table is the Postgres table or MongoDB collection name.
	Table string

	// ClassifierEndpoint is a zero-shot classification endpoint.
	// Empty selects the built-in keyword classifier.
	ClassifierEndpoint string

	// ClassifierToken is the bearer token for ClassifierEndpoint.
	ClassifierToken string

	// ClassifierTopics overrides the default label set.
	ClassifierTopics []string

	// ClassifierKeywords extends the keyword lists of the keyword classifier.
	ClassifierKeywords map[string][]string

	// ClassifierWorkers is the number of classifications run at once.
	ClassifierWorkers int

	// ClassifierTimeout bounds one remote classification.
	ClassifierTimeout time.Duration

	// ServerAddr is the listen address of the HTTP API.
	ServerAddr string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path.
	// If empty, FindConfigFile searches the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-root settings loaded from the configuration file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Depth:             DefaultDepth,
		Concurrency:       DefaultConcurrency,
		BatchSize:         DefaultBatchSize,
		CrawlDelay:        DefaultCrawlDelay,
		Timeout:           DefaultTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		MaxConnsPerHost:   DefaultMaxConnsPerHost,
		UserAgent:         DefaultUserAgent,
		StoreDriver:       frontier.DriverSQLite,
		DBDir:             XDGDataDir(),
		PostgresMaxConns:  DefaultPostgresMaxConns,
		Table:             frontier.DefaultTable,
		ClassifierWorkers: DefaultClassifierWorkers,
		ClassifierTimeout: DefaultClassifierTimeout,
		ServerAddr:        DefaultServerAddr,
	}
}

// XDGDataDir returns the XDG data directory for topiccrawl.
// On Linux: ~/.local/share/topiccrawl
// On macOS: ~/Library/Application Support/topiccrawl
// On Windows: %LOCALAPPDATA%\topiccrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for topiccrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.Depth < 0 {
		return ErrInvalidDepth
	}

	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RequestsPerSecond < 0 {
		return ErrInvalidRequestRate
	}

	if c.ClassifierWorkers <= 0 {
		return ErrInvalidClassifierWorkers
	}

	switch c.StoreDriver {
	case "", frontier.DriverSQLite:
	case frontier.DriverPostgres:
		if c.PostgresDSN == "" {
			return ErrMissingPostgresDSN
		}
	case frontier.DriverMongo:
		if c.MongoURI == "" {
			return ErrMissingMongoURI
		}
	default:
		return ErrUnknownStoreDriver
	}

	return nil
}

// StoreConfig returns the frontier settings.
func (c *Config) StoreConfig() frontier.StoreConfig {
	return frontier.StoreConfig{
		Driver:           c.StoreDriver,
		SQLiteDir:        c.DBDir,
		PostgresDSN:      c.PostgresDSN,
		PostgresMaxConns: c.PostgresMaxConns,
		MongoURI:         c.MongoURI,
		MongoDatabase:    c.MongoDatabase,
		Table:            c.Table,
	}
}

// FetcherOptions returns the fetcher settings.
func (c *Config) FetcherOptions() crawler.FetcherOptions {
	return crawler.FetcherOptions{
		UserAgent:         c.UserAgent,
		Timeout:           c.Timeout,
		MaxBodySize:       c.MaxBodySize,
		MaxConnsPerHost:   c.MaxConnsPerHost,
		ProxyAddress:      c.ProxyAddress,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// ClassifierConfig returns the classifier settings.
func (c *Config) ClassifierConfig() classifier.Config {
	return classifier.Config{
		Endpoint: c.ClassifierEndpoint,
		Token:    c.ClassifierToken,
		Topics:   c.ClassifierTopics,
		Timeout:  c.ClassifierTimeout,
		Keywords: c.ClassifierKeywords,
	}
}

// CrawlOptions returns the crawl options shared by every root.
func (c *Config) CrawlOptions() crawler.CrawlOptions {
	return crawler.CrawlOptions{
		MaxDepth:       c.Depth,
		MaxConcurrency: c.Concurrency,
		StartFresh:     c.StartFresh,
	}
}

// CrawlOptionsFor applies the site configuration of baseURL to opts.
func (c *Config) CrawlOptionsFor(baseURL string, opts crawler.CrawlOptions) crawler.CrawlOptions {
	if c.SiteConfigs == nil {
		return opts
	}

	site := c.SiteConfigs.GetSiteConfig(baseURL)
	if site.Depth > 0 {
		opts.MaxDepth = site.Depth
	}
	if len(site.IgnorePatterns) > 0 {
		opts.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		opts.FollowPatterns = site.FollowPatterns
	}
	return opts
}
