// Package config provides the configuration of topiccrawl: defaults, the
// .topiccrawl YAML file, environment overrides and validation. It also maps
// the configuration onto the settings of the frontier store, the fetcher and
// the classifier.
package config
