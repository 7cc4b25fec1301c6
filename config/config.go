// Package config loads the engine's init-time constants from an ini
// file the way the teacher's server/conf.Cfg loads mysqld settings,
// trading the teacher's MySQL-specific sections for the `[lstore]`
// section spec.md §6 names.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config holds the constants spec.md §6 lists as "compile-time or
// init-time constants". PageSize/CellSize/RecordsPerPage are fixed by
// the spec and not read from file; the rest have file-overridable defaults.
type Config struct {
	Raw *ini.File

	DataDir        string
	MaxBasePages   int
	BufferPoolSize int
	MergeThreshold int
}

// Defaults returns the spec.md §6 default configuration.
func Defaults() *Config {
	return &Config{
		Raw:            ini.Empty(),
		DataDir:        "./lstore-data",
		MaxBasePages:   16,
		BufferPoolSize: 1000,
		MergeThreshold: 256,
	}
}

// Load reads path (an ini file with an `[lstore]` section) over
// Defaults(), leaving any key the file omits at its default.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg.Raw = raw

	sec := raw.Section("lstore")
	cfg.DataDir = sec.Key("data_dir").MustString(cfg.DataDir)
	cfg.MaxBasePages = sec.Key("max_base_pages").MustInt(cfg.MaxBasePages)
	cfg.BufferPoolSize = sec.Key("bufferpool_size").MustInt(cfg.BufferPoolSize)
	cfg.MergeThreshold = sec.Key("merge_threshold").MustInt(cfg.MergeThreshold)
	return cfg, nil
}
