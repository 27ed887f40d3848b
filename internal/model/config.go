package model

import (
	"runtime"
	"time"
)

// Config holds all docgate configuration
type Config struct {
	Quality     QualityConfig     `json:"quality" yaml:"quality" mapstructure:"quality"`
	Snapshot    SnapshotConfig    `json:"snapshot" yaml:"snapshot" mapstructure:"snapshot"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	History     HistoryConfig     `json:"history" yaml:"history" mapstructure:"history"`
	Output      OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
	Watch       WatchConfig       `json:"watch" yaml:"watch" mapstructure:"watch"`
}

// QualityConfig controls scoring thresholds and content annotation
type QualityConfig struct {
	MinScore       float64           `json:"min_score" yaml:"min_score" mapstructure:"min_score"`
	Annotate       bool              `json:"annotate" yaml:"annotate" mapstructure:"annotate"`
	SectionNotices bool              `json:"section_notices" yaml:"section_notices" mapstructure:"section_notices"`
	Progressive    ProgressiveConfig `json:"progressive" yaml:"progressive" mapstructure:"progressive"`
}

// ProgressiveConfig enables tiered acceptance
type ProgressiveConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Thresholds `yaml:",inline" mapstructure:",squash"`
}

// SnapshotConfig controls the project capability scan
type SnapshotConfig struct {
	Enabled  bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MaxFiles int  `json:"max_files" yaml:"max_files" mapstructure:"max_files"`
}

// CacheConfig controls snapshot caching
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `json:"dir" yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	SectionWorkers int `json:"section_workers" yaml:"section_workers" mapstructure:"section_workers"`
	ProbeWorkers   int `json:"probe_workers" yaml:"probe_workers" mapstructure:"probe_workers"`
	BatchWorkers   int `json:"batch_workers" yaml:"batch_workers" mapstructure:"batch_workers"`
}

// HistoryConfig controls the optional run history database
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
	Color   bool `json:"color" yaml:"color" mapstructure:"color"`
}

// WatchConfig controls the file watcher
type WatchConfig struct {
	Debounce    time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"` // Per-file floor between runs
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Quality: QualityConfig{
			MinScore:       70,
			Annotate:       true,
			SectionNotices: true,
			Progressive: ProgressiveConfig{
				Enabled:    true,
				Thresholds: DefaultThresholds(),
			},
		},
		Snapshot: SnapshotConfig{
			Enabled:  true,
			MaxFiles: 20000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "~/.docgate/cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			SectionWorkers: runtime.NumCPU(),
			ProbeWorkers:   16,
			BatchWorkers:   runtime.NumCPU(),
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "~/.docgate/history.db",
		},
		Output: OutputConfig{
			Verbose: false,
			Color:   true,
		},
		Watch: WatchConfig{
			Debounce:    500 * time.Millisecond,
			MinInterval: 2 * time.Second,
		},
	}
}
