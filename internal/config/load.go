package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file. A missing file yields Default().
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Config file not found, using defaults", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML configuration on top of the defaults. Unknown keys
// are ignored.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	cfg.applyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper builds the configuration from the file viper found plus any
// flag or environment overrides viper knows about. Tables are always read
// from the file itself because viper does not keep mapping order.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if used := v.ConfigFileUsed(); used != "" {
		loaded, err := Load(used)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("plants_only") {
		cfg.PlantsOnly = v.GetBool("plants_only")
	}
	if v.IsSet("missing_name_allowed") {
		cfg.MissingNameAllowed = v.GetBool("missing_name_allowed")
	}
	if v.IsSet("missing_technology_allowed") {
		cfg.MissingTechnologyAllowed = v.GetBool("missing_technology_allowed")
	}
	if v.IsSet("unknown_source_allowed") {
		cfg.UnknownSourceAllowed = v.GetBool("unknown_source_allowed")
	}
	if v.IsSet("force_refresh") {
		cfg.ForceRefresh = v.GetBool("force_refresh")
	}
	if s := v.GetString("cache_dir"); s != "" {
		cfg.CacheDir = s
	}
	if s := v.GetString("overpass.endpoint"); s != "" {
		cfg.Overpass.Endpoint = s
	}
	if s := v.GetString("cache.backend"); s != "" {
		cfg.Cache.Backend = s
	}
	if s := v.GetString("cache.redis_addr"); s != "" {
		cfg.Cache.RedisAddr = s
	}

	cfg.CacheDir = ExpandPath(cfg.CacheDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendFile:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("%w: cache.redis_addr is required for the redis backend", common.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", common.ErrInvalidConfig, c.Cache.Backend)
	}

	for _, entry := range c.TechnologyMapping {
		if entry.Set != "" && entry.Set != "PP" && entry.Set != "Store" {
			return fmt.Errorf("%w: technology %q has set %q, want PP or Store", common.ErrInvalidConfig, entry.Name, entry.Set)
		}
	}
	return nil
}
