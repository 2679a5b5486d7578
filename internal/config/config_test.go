package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/topiccrawl/internal/crawler"
	"github.com/nao1215/topiccrawl/internal/frontier"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults should be intentional, so each one is pinned here.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Depth is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.Depth != 2 {
			t.Errorf("expected Depth to be 2, got %d", cfg.Depth)
		}
	})

	t.Run("default crawler is sequential", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 0 {
			t.Errorf("expected Concurrency to be 0, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default crawl delay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlDelay != time.Second {
			t.Errorf("expected CrawlDelay to be 1s, got %v", cfg.CrawlDelay)
		}
	})

	t.Run("default store is sqlite in the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.StoreDriver != frontier.DriverSQLite {
			t.Errorf("expected sqlite driver, got %q", cfg.StoreDriver)
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
		if cfg.Table != "scraped_urls" {
			t.Errorf("expected table scraped_urls, got %q", cfg.Table)
		}
	})

	t.Run("default classifier runs one inference at a time", func(t *testing.T) {
		t.Parallel()
		if cfg.ClassifierWorkers != 1 {
			t.Errorf("expected 1 classifier worker, got %d", cfg.ClassifierWorkers)
		}
		if cfg.ClassifierEndpoint != "" {
			t.Errorf("expected no classifier endpoint, got %q", cfg.ClassifierEndpoint)
		}
	})

	t.Run("default server address is loopback", func(t *testing.T) {
		t.Parallel()
		if cfg.ServerAddr != "127.0.0.1:8000" {
			t.Errorf("expected 127.0.0.1:8000, got %q", cfg.ServerAddr)
		}
	})

	t.Run("default config is valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid defaults, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case breaks exactly one rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"negative depth", func(c *Config) { c.Depth = -1 }, ErrInvalidDepth},
		{"zero depth is valid", func(c *Config) { c.Depth = 0 }, nil},
		{"negative concurrency", func(c *Config) { c.Concurrency = -4 }, ErrInvalidConcurrency},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative delay", func(c *Config) { c.CrawlDelay = -time.Second }, ErrInvalidCrawlDelay},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative request rate", func(c *Config) { c.RequestsPerSecond = -0.5 }, ErrInvalidRequestRate},
		{"zero classifier workers", func(c *Config) { c.ClassifierWorkers = 0 }, ErrInvalidClassifierWorkers},
		{"unknown driver", func(c *Config) { c.StoreDriver = "redis" }, ErrUnknownStoreDriver},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = frontier.DriverPostgres }, ErrMissingPostgresDSN},
		{"postgres with dsn", func(c *Config) {
			c.StoreDriver = frontier.DriverPostgres
			c.PostgresDSN = "postgres://localhost/crawl"
		}, nil},
		{"mongo without uri", func(c *Config) { c.StoreDriver = frontier.DriverMongo }, ErrMissingMongoURI},
		{"mongo with uri", func(c *Config) {
			c.StoreDriver = frontier.DriverMongo
			c.MongoURI = "mongodb://localhost:27017"
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigMapping tests conversion to component settings.
func TestConfigMapping(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.StoreDriver = frontier.DriverPostgres
	cfg.PostgresDSN = "postgres://db/crawl"
	cfg.PostgresMaxConns = 8
	cfg.Table = "pages"
	cfg.ProxyAddress = "127.0.0.1:9050"
	cfg.RequestsPerSecond = 2
	cfg.ClassifierEndpoint = "https://classify.test.com"
	cfg.ClassifierToken = "hf_token"
	cfg.ClassifierTopics = []string{"news", "sports"}
	cfg.Depth = 3
	cfg.Concurrency = 6
	cfg.StartFresh = true

	t.Run("StoreConfig", func(t *testing.T) {
		t.Parallel()

		sc := cfg.StoreConfig()
		if sc.Driver != frontier.DriverPostgres || sc.PostgresDSN != "postgres://db/crawl" ||
			sc.PostgresMaxConns != 8 || sc.Table != "pages" || sc.SQLiteDir != cfg.DBDir {
			t.Errorf("unexpected store config: %+v", sc)
		}
	})

	t.Run("FetcherOptions", func(t *testing.T) {
		t.Parallel()

		fo := cfg.FetcherOptions()
		if fo.UserAgent != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", fo.UserAgent)
		}
		if fo.Timeout != DefaultTimeout || fo.ProxyAddress != "127.0.0.1:9050" ||
			fo.RequestsPerSecond != 2 || fo.MaxConnsPerHost != DefaultMaxConnsPerHost {
			t.Errorf("unexpected fetcher options: %+v", fo)
		}
	})

	t.Run("ClassifierConfig", func(t *testing.T) {
		t.Parallel()

		cc := cfg.ClassifierConfig()
		if cc.Endpoint != "https://classify.test.com" || cc.Token != "hf_token" ||
			len(cc.Topics) != 2 || cc.Timeout != DefaultClassifierTimeout {
			t.Errorf("unexpected classifier config: %+v", cc)
		}
	})

	t.Run("CrawlOptions", func(t *testing.T) {
		t.Parallel()

		opts := cfg.CrawlOptions()
		if opts.MaxDepth != 3 || opts.MaxConcurrency != 6 || !opts.StartFresh {
			t.Errorf("unexpected crawl options: %+v", opts)
		}
	})
}

// TestCrawlOptionsFor tests per-site overrides.
func TestCrawlOptionsFor(t *testing.T) {
	t.Parallel()

	base := crawler.CrawlOptions{MaxDepth: 2, MaxConcurrency: 4}

	t.Run("no site configs", func(t *testing.T) {
		t.Parallel()

		got := NewConfig().CrawlOptionsFor("https://test.com", base)
		if got.MaxDepth != 2 || got.IgnorePatterns != nil {
			t.Errorf("expected unchanged options, got %+v", got)
		}
	})

	t.Run("site overrides depth and patterns", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{
			Defaults: SiteConfig{IgnorePatterns: []string{"*.pdf"}},
			Sites: map[string]SiteConfig{
				"https://test.com/": {Depth: 5, FollowPatterns: []string{"/docs/*"}},
			},
		}

		got := cfg.CrawlOptionsFor("https://test.com", base)
		if got.MaxDepth != 5 {
			t.Errorf("expected depth 5, got %d", got.MaxDepth)
		}
		if len(got.IgnorePatterns) != 1 || got.IgnorePatterns[0] != "*.pdf" {
			t.Errorf("expected default ignore patterns, got %v", got.IgnorePatterns)
		}
		if len(got.FollowPatterns) != 1 || got.FollowPatterns[0] != "/docs/*" {
			t.Errorf("expected site follow patterns, got %v", got.FollowPatterns)
		}
		if got.MaxConcurrency != 4 {
			t.Errorf("expected concurrency to be kept, got %d", got.MaxConcurrency)
		}
	})
}

// TestFileGetSiteConfig tests merging of site-specific and default settings.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Depth:          3,
			IgnorePatterns: []string{"/logout"},
		},
		Sites: map[string]SiteConfig{
			"https://test.com": {
				Depth:          7,
				IgnorePatterns: []string{"/admin/*"},
			},
			"https://docs.test.com/": {
				FollowPatterns: []string{"/v2/*"},
			},
		},
	}

	tests := []struct {
		name       string
		baseURL    string
		wantDepth  int
		wantIgnore string
		wantFollow int
	}{
		{"exact match", "https://test.com", 7, "/admin/*", 0},
		{"trailing slash added", "https://test.com/", 7, "/admin/*", 0},
		{"trailing slash removed", "https://docs.test.com", 3, "/logout", 1},
		{"unknown site gets defaults", "https://other.com", 3, "/logout", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := cf.GetSiteConfig(tt.baseURL)
			if got.Depth != tt.wantDepth {
				t.Errorf("expected depth %d, got %d", tt.wantDepth, got.Depth)
			}
			if len(got.IgnorePatterns) != 1 || got.IgnorePatterns[0] != tt.wantIgnore {
				t.Errorf("expected ignore %q, got %v", tt.wantIgnore, got.IgnorePatterns)
			}
			if len(got.FollowPatterns) != tt.wantFollow {
				t.Errorf("expected %d follow patterns, got %v", tt.wantFollow, got.FollowPatterns)
			}
		})
	}
}

// writeConfig writes content to a .topiccrawl file in a temporary directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

const fullConfig = `store:
  driver: postgres
  postgres_dsn: postgres://crawler:pw@db/crawl
  postgres_max_conns: 10
  table: pages
crawl:
  depth: 0
  concurrency: 8
  batch: 3
  delay: 250ms
  timeout: 15s
  requests_per_second: 1.5
  proxy: 127.0.0.1:9050
classifier:
  endpoint: https://classify.test.com/models/bart
  topics: [news, sports, finance]
  keywords:
    finance: [stocks, bonds]
  workers: 2
  timeout: 5s
server:
  addr: 0.0.0.0:9000
defaults:
  ignore_patterns:
    - "*.pdf"
sites:
  https://test.com:
    depth: 4
    follow_patterns:
      - "/blog/*"
`

// TestLoadConfigFile tests reading the YAML configuration file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.topiccrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, fullConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cf.Store.Driver != "postgres" || cf.Store.PostgresMaxConns != 10 {
			t.Errorf("unexpected store section: %+v", cf.Store)
		}
		if cf.Crawl.Depth == nil || *cf.Crawl.Depth != 0 {
			t.Errorf("expected explicit depth 0, got %v", cf.Crawl.Depth)
		}
		if cf.Crawl.Delay == nil || *cf.Crawl.Delay != 250*time.Millisecond || cf.Crawl.Timeout != 15*time.Second {
			t.Errorf("unexpected durations: delay=%v timeout=%v", cf.Crawl.Delay, cf.Crawl.Timeout)
		}
		if len(cf.Classifier.Topics) != 3 {
			t.Errorf("expected 3 topics, got %v", cf.Classifier.Topics)
		}
		if words := cf.Classifier.Keywords["finance"]; len(words) != 2 {
			t.Errorf("expected 2 finance keywords, got %v", words)
		}
		site, ok := cf.Sites["https://test.com"]
		if !ok || site.Depth != 4 || len(site.FollowPatterns) != 1 {
			t.Errorf("unexpected site config: %+v", site)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeConfig(t, `invalid: yaml: content: [}`))
		if err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, "crawl:\n  batch: 2\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestApplyFile tests that file values override defaults.
func TestApplyFile(t *testing.T) {
	t.Parallel()

	cf, err := LoadConfigFile(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := NewConfig()
	cfg.ApplyFile(cf)

	if cfg.StoreDriver != "postgres" || cfg.PostgresDSN != "postgres://crawler:pw@db/crawl" ||
		cfg.PostgresMaxConns != 10 || cfg.Table != "pages" {
		t.Errorf("unexpected store settings: %+v", cfg.StoreConfig())
	}
	if cfg.Depth != 0 {
		t.Errorf("expected explicit depth 0 to override default, got %d", cfg.Depth)
	}
	if cfg.Concurrency != 8 || cfg.BatchSize != 3 {
		t.Errorf("expected concurrency 8 and batch 3, got %d and %d", cfg.Concurrency, cfg.BatchSize)
	}
	if cfg.CrawlDelay != 250*time.Millisecond || cfg.Timeout != 15*time.Second {
		t.Errorf("unexpected durations: %v %v", cfg.CrawlDelay, cfg.Timeout)
	}
	if cfg.RequestsPerSecond != 1.5 || cfg.ProxyAddress != "127.0.0.1:9050" {
		t.Errorf("unexpected fetch settings: %+v", cfg.FetcherOptions())
	}
	if cfg.ClassifierWorkers != 2 || cfg.ClassifierTimeout != 5*time.Second ||
		!strings.HasSuffix(cfg.ClassifierEndpoint, "/models/bart") {
		t.Errorf("unexpected classifier settings: %+v", cfg.ClassifierConfig())
	}
	if cc := cfg.ClassifierConfig(); len(cc.Keywords["finance"]) != 2 {
		t.Errorf("expected finance keywords in classifier config, got %v", cc.Keywords)
	}
	if cfg.ServerAddr != "0.0.0.0:9000" {
		t.Errorf("expected server addr override, got %q", cfg.ServerAddr)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("expected unset user agent to keep the default, got %q", cfg.UserAgent)
	}
	if cfg.SiteConfigs != cf {
		t.Error("expected site configs to be kept")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected loaded config to be valid, got %v", err)
	}

	cfg.ApplyFile(nil)
	if cfg.SiteConfigs != cf {
		t.Error("expected nil file to be ignored")
	}
}

// TestApplyFileDelay tests that an explicit zero delay disables the default pause.
func TestApplyFileDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    time.Duration
	}{
		{"unset keeps default", "crawl:\n  batch: 2\n", DefaultCrawlDelay},
		{"explicit zero disables", "crawl:\n  delay: 0s\n", 0},
		{"explicit value", "crawl:\n  delay: 2s\n", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cf, err := LoadConfigFile(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			cfg := NewConfig()
			cfg.ApplyFile(cf)
			if cfg.CrawlDelay != tt.want {
				t.Errorf("expected delay %v, got %v", tt.want, cfg.CrawlDelay)
			}
		})
	}
}

// TestApplyEnv tests environment overrides.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvPostgresDSN:     "postgres://env/crawl",
		EnvMongoURI:        "",
		EnvClassifierToken: "hf_env",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := NewConfig()
	cfg.MongoURI = "mongodb://file"
	cfg.ApplyEnv(lookup)

	if cfg.PostgresDSN != "postgres://env/crawl" {
		t.Errorf("expected DSN from env, got %q", cfg.PostgresDSN)
	}
	if cfg.MongoURI != "mongodb://file" {
		t.Errorf("expected empty env value to be ignored, got %q", cfg.MongoURI)
	}
	if cfg.ClassifierToken != "hf_env" {
		t.Errorf("expected token from env, got %q", cfg.ClassifierToken)
	}
}

// TestLoad tests the combined loading sequence.
func TestLoad(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		t.Setenv(EnvClassifierToken, "hf_from_env")

		cfg, err := Load(writeConfig(t, "crawl:\n  depth: 5\nclassifier:\n  token: hf_from_file\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Depth != 5 {
			t.Errorf("expected depth 5, got %d", cfg.Depth)
		}
		if cfg.ClassifierToken != "hf_from_env" {
			t.Errorf("expected env to override file, got %q", cfg.ClassifierToken)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := writeConfig(t, "server: {}")

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds file in current directory", func(t *testing.T) {
		configPath := writeConfig(t, "server: {}")
		t.Chdir(filepath.Dir(configPath))

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s to be found, got %q", DefaultConfigFile, result)
		}
	})

	t.Run("falls back to the XDG config directory", func(t *testing.T) {
		t.Cleanup(xdg.Reload)

		xdgHome := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdgHome)
		t.Setenv("HOME", t.TempDir())
		t.Chdir(t.TempDir())
		xdg.Reload()

		want := filepath.Join(xdgHome, AppName, XDGConfigFile)
		if err := os.MkdirAll(filepath.Dir(want), 0750); err != nil {
			t.Fatalf("failed to create config dir: %v", err)
		}
		if err := os.WriteFile(want, []byte("server: {}"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if result := FindConfigFile(""); result != want {
			t.Errorf("expected %q, got %q", want, result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"data": XDGDataDir(), "config": XDGConfigDir()} {
		if dir == "" {
			t.Errorf("expected non-empty %s dir", name)
		}
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %s dir to end with %q, got %q", name, AppName, dir)
		}
	}
}
