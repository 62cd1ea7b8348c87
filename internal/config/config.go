// Package config handles c3kit configuration loading and management.
package config

// Config holds all c3kit settings.
type Config struct {
	Archives ArchivesConfig `yaml:"archives"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ArchivesConfig lists the packs the asset manager opens.
type ArchivesConfig struct {
	WDF        []string `yaml:"wdf"`        // WDF archives, routed by pack id
	DNP        []string `yaml:"dnp"`        // DNP archives, searched in order
	Root       string   `yaml:"root"`       // Directory for loose files
	Filesystem bool     `yaml:"filesystem"` // Fall back to Root when no archive has the asset
}

// CacheConfig controls the asset cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"` // 0 means unbounded
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Archives: ArchivesConfig{
			Root:       ".",
			Filesystem: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 256,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
