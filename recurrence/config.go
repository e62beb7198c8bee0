package recurrence

import (
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/calrecur/recur"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// Budget bounds every rule expansion the engine runs.
	Budget recur.Budget

	// Performance tuning
	MaxExpansionOccurrences int // Occurrences HasOccurrenceInRange probes before expanding the window
	BatchWorkers            int // Concurrent expansions in ExpandBatch
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,
	Budget:       recur.DefaultBudget,

	MaxExpansionOccurrences: 100,
	BatchWorkers:            4,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:        30 * time.Minute, // Longer cache TTL
		MaxEntries: 5000,             // More cache entries
	},
	Budget: recur.Budget{
		MaxCycles:      1_000_000,
		MaxEmptyCycles: 2_000,
		Deadline:       time.Second,
	},

	MaxExpansionOccurrences: 50, // Fewer occurrences checked for speed
	BatchWorkers:            16,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:        5 * time.Minute, // Shorter cache TTL
		MaxEntries: 100,             // Fewer cache entries
	},
	Budget: recur.DefaultBudget,

	MaxExpansionOccurrences: 200, // More thorough checking
	BatchWorkers:            1,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used
	Budget:       recur.DefaultBudget,

	MaxExpansionOccurrences: 1000, // More thorough without cache
	BatchWorkers:            4,
}

var presets = map[string]EngineConfig{
	"default":          DefaultEngineConfig,
	"high-performance": HighPerformanceConfig,
	"low-memory":       LowMemoryConfig,
	"no-cache":         DisabledCacheConfig,
}

// fileConfig is the YAML form of EngineConfig. Zero fields keep the
// preset's value.
type fileConfig struct {
	Preset       string `yaml:"preset"`
	CacheEnabled *bool  `yaml:"cache_enabled"`
	Cache        struct {
		TTL        time.Duration `yaml:"ttl"`
		MaxEntries int           `yaml:"max_entries"`
	} `yaml:"cache"`
	Budget struct {
		MaxCycles      int           `yaml:"max_cycles"`
		MaxEmptyCycles int           `yaml:"max_empty_cycles"`
		Deadline       time.Duration `yaml:"deadline"`
	} `yaml:"budget"`
	MaxExpansionOccurrences int `yaml:"max_expansion_occurrences"`
	BatchWorkers            int `yaml:"batch_workers"`
}

// LoadConfig reads an engine configuration from YAML. Durations are Go
// duration strings such as "15m".
//
//	preset: high-performance
//	cache:
//	  ttl: 10m
//	budget:
//	  deadline: 2s
func LoadConfig(r io.Reader) (EngineConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && err != io.EOF {
		return EngineConfig{}, fmt.Errorf("failed to decode engine config: %w", err)
	}

	name := fc.Preset
	if name == "" {
		name = "default"
	}
	config, ok := presets[name]
	if !ok {
		return EngineConfig{}, fmt.Errorf("unknown engine config preset %q", name)
	}

	if fc.CacheEnabled != nil {
		config.CacheEnabled = *fc.CacheEnabled
	}
	setIf(&config.CacheConfig.TTL, fc.Cache.TTL)
	setIf(&config.CacheConfig.MaxEntries, fc.Cache.MaxEntries)
	setIf(&config.Budget.MaxCycles, fc.Budget.MaxCycles)
	setIf(&config.Budget.MaxEmptyCycles, fc.Budget.MaxEmptyCycles)
	setIf(&config.Budget.Deadline, fc.Budget.Deadline)
	setIf(&config.MaxExpansionOccurrences, fc.MaxExpansionOccurrences)
	setIf(&config.BatchWorkers, fc.BatchWorkers)

	if config.CacheEnabled && config.CacheConfig.MaxEntries <= 0 {
		config.CacheConfig = DefaultCacheConfig
	}
	return config, nil
}

func setIf[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}
