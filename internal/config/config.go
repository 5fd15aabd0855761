package config

import (
	"crypto/md5" //nolint:gosec // fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache backends.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

// DefaultEndpoint is the public query service.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// CapacityExtraction controls how capacity tags are parsed.
type CapacityExtraction struct {
	Advanced bool `yaml:"advanced" json:"advanced"`
}

// OverpassConfig controls the remote query client.
type OverpassConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
}

// Config is the process-wide configuration. It is read once per run and
// never mutated by the pipeline; use WithOverrides to derive a copy.
type Config struct {
	Cache                    CacheConfig        `yaml:"cache"`
	CacheDir                 string             `yaml:"cache_dir"`
	Overpass                 OverpassConfig     `yaml:"overpass"`
	SourceMapping            OrderedTable       `yaml:"source_mapping"`
	TechnologyMapping        OrderedTable       `yaml:"technology_mapping"`
	CapacityExtraction       CapacityExtraction `yaml:"capacity_extraction"`
	PlantsOnly               bool               `yaml:"plants_only"`
	MissingNameAllowed       bool               `yaml:"missing_name_allowed"`
	MissingTechnologyAllowed bool               `yaml:"missing_technology_allowed"`
	UnknownSourceAllowed     bool               `yaml:"unknown_source_allowed"`
	ForceRefresh             bool               `yaml:"force_refresh"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		PlantsOnly:               true,
		MissingNameAllowed:       true,
		MissingTechnologyAllowed: true,
		UnknownSourceAllowed:     true,
		CacheDir:                 DefaultCacheDir(),
		SourceMapping:            DefaultSourceMapping(),
		TechnologyMapping:        DefaultTechnologyMapping(),
		CapacityExtraction:       CapacityExtraction{Advanced: true},
		Overpass: OverpassConfig{
			Endpoint:          DefaultEndpoint,
			Timeout:           5 * time.Minute,
			MaxAttempts:       3,
			RequestsPerMinute: 10,
		},
		Cache: CacheConfig{Backend: CacheBackendFile},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.SourceMapping = c.SourceMapping.clone()
	out.TechnologyMapping = c.TechnologyMapping.clone()
	return &out
}

// WithOverrides returns a copy with fn applied. The receiver is untouched.
func (c *Config) WithOverrides(fn func(*Config)) *Config {
	out := c.Clone()
	if fn != nil {
		fn(out)
	}
	return out
}

// fingerprintView lists the options that change pipeline output.
type fingerprintView struct {
	SourceMapping            OrderedTable `json:"source_mapping"`
	TechnologyMapping        OrderedTable `json:"technology_mapping"`
	PlantsOnly               bool         `json:"plants_only"`
	MissingNameAllowed       bool         `json:"missing_name_allowed"`
	MissingTechnologyAllowed bool         `json:"missing_technology_allowed"`
	UnknownSourceAllowed     bool         `json:"unknown_source_allowed"`
	AdvancedCapacity         bool         `json:"advanced_capacity"`
}

// Fingerprint returns a 32 character hex digest of the options that affect
// which units are produced and how. Cache location and transport settings
// are excluded.
func (c *Config) Fingerprint() string {
	view := fingerprintView{
		SourceMapping:            c.SourceMapping,
		TechnologyMapping:        c.TechnologyMapping,
		PlantsOnly:               c.PlantsOnly,
		MissingNameAllowed:       c.MissingNameAllowed,
		MissingTechnologyAllowed: c.MissingTechnologyAllowed,
		UnknownSourceAllowed:     c.UnknownSourceAllowed,
		AdvancedCapacity:         c.CapacityExtraction.Advanced,
	}
	// Marshaling plain structs and slices cannot fail.
	data, _ := json.Marshal(view)
	sum := md5.Sum(data) //nolint:gosec // fingerprint, not a security boundary
	return hex.EncodeToString(sum[:])
}

// applyFallbacks fills values a file left empty.
func (c *Config) applyFallbacks() {
	def := Default()
	if len(c.SourceMapping) == 0 {
		c.SourceMapping = def.SourceMapping
	}
	if len(c.TechnologyMapping) == 0 {
		c.TechnologyMapping = def.TechnologyMapping
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.Overpass.Endpoint == "" {
		c.Overpass.Endpoint = def.Overpass.Endpoint
	}
	if c.Overpass.Timeout <= 0 {
		c.Overpass.Timeout = def.Overpass.Timeout
	}
	if c.Overpass.MaxAttempts <= 0 {
		c.Overpass.MaxAttempts = def.Overpass.MaxAttempts
	}
	if c.Overpass.RequestsPerMinute <= 0 {
		c.Overpass.RequestsPerMinute = def.Overpass.RequestsPerMinute
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendFile
	}
}
