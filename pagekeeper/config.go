package pagekeeper

import (
	"github.com/hazyhaar/offsite/pagekeeper/internal/config"
)

// Config is the top-level pagekeeper configuration. Re-exported from internal.
type Config = config.Config

// PageConfig describes the document and its editable markers.
type PageConfig = config.PageConfig

// StorageConfig selects the backend and the key layout.
type StorageConfig = config.StorageConfig

// SaveConfig controls when saves run and what they capture.
type SaveConfig = config.SaveConfig

// SharedConfig controls the cross-instance broadcast key.
type SharedConfig = config.SharedConfig

// NotifyConfig controls toasts.
type NotifyConfig = config.NotifyConfig

// SinkConfig defines a notice output.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// HTTPConfig controls the serve command.
type HTTPConfig = config.HTTPConfig
