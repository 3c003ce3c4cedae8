// Package config provides configuration structures and utilities for sitecrawl.
// It defines the options for a crawl, the report output preferences, and the
// optional YAML file holding per-site cookies, headers and ignore patterns.
package config
