package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete settings for the ingestion-and-query core.
type Config struct {
	Store       StoreConfig       `koanf:"store"`
	Importer    ImporterConfig    `koanf:"importer"`
	Cache       CacheConfig       `koanf:"cache"`
	Search      SearchConfig      `koanf:"search"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
}

// StoreConfig configures the embedded relational store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means in-memory.
	Path string `koanf:"path"`

	// MaxOpenConns bounds the shared connection pool (spec: ~5).
	MaxOpenConns int `koanf:"max_open_conns"`

	// CachePages sets SQLite's page cache size, negative meaning KiB
	// (e.g. -65536 for a ~64MB cache, per sqlite3's PRAGMA cache_size).
	CachePages int `koanf:"cache_pages"`
}

// ImporterConfig configures the streaming importer.
type ImporterConfig struct {
	// BatchSize is the number of conversations buffered before a batch
	// is handed to the persistence layer. Default: 100.
	BatchSize int `koanf:"batch_size"`
}

// CacheConfig configures the two named query caches.
type CacheConfig struct {
	SearchResults       CacheInstanceConfig `koanf:"search_results"`
	ConversationPreview CacheInstanceConfig `koanf:"conversation_preview"`
}

// CacheInstanceConfig configures one TTL+LRU cache instance.
type CacheInstanceConfig struct {
	Capacity int      `koanf:"capacity"`
	TTL      Duration `koanf:"ttl"`
}

// SearchConfig configures default/maximum result limits.
type SearchConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`

	// SnippetLength is the full-text snippet length in characters,
	// converted internally to SQLite snippet()'s token budget.
	SnippetLength int `koanf:"snippet_length"`
}

// MaintenanceConfig configures the background maintenance tickers.
type MaintenanceConfig struct {
	Interval Duration `koanf:"interval"`
}

// Defaults returns the hardcoded baseline configuration, matching the
// values spec.md fixes for cache capacity/TTL and search limits.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Path:         filepath.Join(home, ".local", "share", "convoarchive", "archive.db"),
			MaxOpenConns: 5,
			CachePages:   -65536, // ~64MB, negative = KiB per SQLite convention
		},
		Importer: ImporterConfig{
			BatchSize: 100,
		},
		Cache: CacheConfig{
			SearchResults:       CacheInstanceConfig{Capacity: 1000, TTL: Duration(5 * time.Minute)},
			ConversationPreview: CacheInstanceConfig{Capacity: 500, TTL: Duration(10 * time.Minute)},
		},
		Search: SearchConfig{
			DefaultLimit:  50,
			MaxLimit:      100,
			SnippetLength: 300,
		},
		Maintenance: MaintenanceConfig{
			Interval: Duration(60 * time.Second),
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Store.MaxOpenConns <= 0 {
		return fmt.Errorf("store.max_open_conns must be positive, got %d", c.Store.MaxOpenConns)
	}
	if c.Importer.BatchSize <= 0 {
		return fmt.Errorf("importer.batch_size must be positive, got %d", c.Importer.BatchSize)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.SnippetLength < 0 {
		return fmt.Errorf("search.snippet_length must not be negative, got %d", c.Search.SnippetLength)
	}
	if c.Cache.SearchResults.Capacity <= 0 || c.Cache.ConversationPreview.Capacity <= 0 {
		return fmt.Errorf("cache capacities must be positive")
	}
	return nil
}
