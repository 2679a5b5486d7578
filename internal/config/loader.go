package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".topiccrawl"

// XDGConfigFile is the configuration file name inside XDGConfigDir.
const XDGConfigFile = "config.yaml"

// Environment variables that override secrets from the configuration file.
const (
	EnvPostgresDSN     = "TOPICCRAWL_POSTGRES_DSN"
	EnvMongoURI        = "TOPICCRAWL_MONGO_URI"
	EnvClassifierToken = "TOPICCRAWL_CLASSIFIER_TOKEN"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads the configuration file at path.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .topiccrawl in the current directory
// 3. Look for .topiccrawl in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// ApplyFile copies every value set in cf into c. Unset values keep their
// current setting.
func (c *Config) ApplyFile(cf *File) {
	if cf == nil {
		return
	}
	c.SiteConfigs = cf

	s := cf.Store
	setString(&c.StoreDriver, s.Driver)
	setString(&c.DBDir, s.SQLiteDir)
	setString(&c.PostgresDSN, s.PostgresDSN)
	setString(&c.MongoURI, s.MongoURI)
	setString(&c.MongoDatabase, s.MongoDatabase)
	setString(&c.Table, s.Table)
	if s.PostgresMaxConns > 0 {
		c.PostgresMaxConns = s.PostgresMaxConns
	}

	cr := cf.Crawl
	if cr.Depth != nil {
		c.Depth = *cr.Depth
	}
	if cr.Concurrency != nil {
		c.Concurrency = *cr.Concurrency
	}
	if cr.Batch != 0 {
		c.BatchSize = cr.Batch
	}
	if cr.Delay != nil {
		c.CrawlDelay = *cr.Delay
	}
	if cr.Timeout != 0 {
		c.Timeout = cr.Timeout
	}
	if cr.MaxBodySize != 0 {
		c.MaxBodySize = cr.MaxBodySize
	}
	if cr.MaxConnsPerHost != 0 {
		c.MaxConnsPerHost = cr.MaxConnsPerHost
	}
	if cr.RequestsPerSecond != 0 {
		c.RequestsPerSecond = cr.RequestsPerSecond
	}
	setString(&c.ProxyAddress, cr.Proxy)
	setString(&c.UserAgent, cr.UserAgent)

	cl := cf.Classifier
	setString(&c.ClassifierEndpoint, cl.Endpoint)
	setString(&c.ClassifierToken, cl.Token)
	if len(cl.Keywords) > 0 {
		c.ClassifierKeywords = cl.Keywords
	}
	if len(cl.Topics) > 0 {
		c.ClassifierTopics = cl.Topics
	}
	if cl.Workers != 0 {
		c.ClassifierWorkers = cl.Workers
	}
	if cl.Timeout != 0 {
		c.ClassifierTimeout = cl.Timeout
	}

	setString(&c.ServerAddr, cf.Server.Addr)
}

// ApplyEnv overrides secrets from the environment. lookup is usually
// os.LookupEnv; variables that are unset or empty are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPostgresDSN); ok {
		setString(&c.PostgresDSN, v)
	}
	if v, ok := lookup(EnvMongoURI); ok {
		setString(&c.MongoURI, v)
	}
	if v, ok := lookup(EnvClassifierToken); ok {
		setString(&c.ClassifierToken, v)
	}
}

// Load builds a Config from defaults, the configuration file and the
// environment. An explicit configPath that does not exist is an error;
// a missing default file is not.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	if path == "" && configPath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.ApplyFile(cf)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
