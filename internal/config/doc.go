// Package config holds the crawl settings of sitesnap: built-in defaults,
// the optional .sitesnap YAML file with per-host overrides, and validation.
package config
