package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config from hardcoded defaults, an optional YAML file,
// and environment variable overrides, in that order of precedence
// (environment wins).
//
// Environment variables use underscore separation and are uppercased,
// e.g. STORE_PATH -> store.path, CACHE_SEARCH_RESULTS_CAPACITY ->
// cache.search_results.capacity is not reachable through this flat
// transform; nested overrides are expected to come through the YAML
// file instead, matching the shallow env mapping the teacher's loader
// uses for its own single-underscore sections.
func Load(yamlPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := Defaults()
	defaultsMap := map[string]interface{}{
		"store.path":           cfg.Store.Path,
		"store.max_open_conns": cfg.Store.MaxOpenConns,
		"store.cache_pages":    cfg.Store.CachePages,
		"importer.batch_size":  cfg.Importer.BatchSize,
		"search.default_limit": cfg.Search.DefaultLimit,
		"search.max_limit":     cfg.Search.MaxLimit,
	}
	if err := k.Load(confmap.Provider(defaultsMap, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if yamlPath != "" {
		content, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", yamlPath, err)
			}
		} else {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", yamlPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	out := Defaults()
	if err := k.Unmarshal("", out); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return out, nil
}
