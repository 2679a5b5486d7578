package config

import (
	"strings"
	"time"
)

// SiteConfig holds per-root configuration.
// This allows customizing crawl behavior for a single site.
type SiteConfig struct {
	// Depth overrides the global crawl depth for this site.
	// If zero, the global Depth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"follow_patterns,omitempty"`
}

// StoreSection is the store: block of the configuration file.
type StoreSection struct {
	Driver           string `yaml:"driver,omitempty"`
	SQLiteDir        string `yaml:"sqlite_dir,omitempty"`
	PostgresDSN      string `yaml:"postgres_dsn,omitempty"`
	PostgresMaxConns int32  `yaml:"postgres_max_conns,omitempty"`
	MongoURI         string `yaml:"mongo_uri,omitempty"`
	MongoDatabase    string `yaml:"mongo_database,omitempty"`
	Table            string `yaml:"table,omitempty"`
}

// CrawlSection is the crawl: block of the configuration file.
type CrawlSection struct {
	Depth             *int           `yaml:"depth,omitempty"`
	Concurrency       *int           `yaml:"concurrency,omitempty"`
	Batch             int            `yaml:"batch,omitempty"`
	Delay             *time.Duration `yaml:"delay,omitempty"`
	Timeout           time.Duration  `yaml:"timeout,omitempty"`
	MaxBodySize       int64          `yaml:"max_body_size,omitempty"`
	MaxConnsPerHost   int            `yaml:"max_conns_per_host,omitempty"`
	RequestsPerSecond float64        `yaml:"requests_per_second,omitempty"`
	Proxy             string         `yaml:"proxy,omitempty"`
	UserAgent         string         `yaml:"user_agent,omitempty"`
}

// ClassifierSection is the classifier: block of the configuration file.
type ClassifierSection struct {
	Endpoint string              `yaml:"endpoint,omitempty"`
	Token    string              `yaml:"token,omitempty"`
	Topics   []string            `yaml:"topics,omitempty"`
	Keywords map[string][]string `yaml:"keywords,omitempty"`
	Workers  int                 `yaml:"workers,omitempty"`
	Timeout  time.Duration       `yaml:"timeout,omitempty"`
}

// ServerSection is the server: block of the configuration file.
type ServerSection struct {
	Addr string `yaml:"addr,omitempty"`
}

// File represents the structure of the .topiccrawl configuration file.
type File struct {
	Store      StoreSection      `yaml:"store,omitempty"`
	Crawl      CrawlSection      `yaml:"crawl,omitempty"`
	Classifier ClassifierSection `yaml:"classifier,omitempty"`
	Server     ServerSection     `yaml:"server,omitempty"`

	// Sites maps crawl roots to their site-specific configurations.
	// Keys are base URLs; a trailing slash is ignored when matching.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific crawl root.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(baseURL string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[baseURL]
	if !ok {
		siteConfig, ok = cf.Sites[toggleTrailingSlash(baseURL)]
	}
	if !ok {
		return result
	}

	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

func toggleTrailingSlash(s string) string {
	if trimmed, ok := strings.CutSuffix(s, "/"); ok {
		return trimmed
	}
	return s + "/"
}
