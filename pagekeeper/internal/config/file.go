// Package config loads pagekeeper configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pagekeeper configuration.
type Config struct {
	Page    PageConfig    `yaml:"page"`
	Storage StorageConfig `yaml:"storage"`
	Save    SaveConfig    `yaml:"save"`
	Shared  SharedConfig  `yaml:"shared"`
	Notify  NotifyConfig  `yaml:"notify"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// PageConfig describes the document and how its editable surface is marked.
type PageConfig struct {
	Path            string              `yaml:"path"`
	EditableAttr    string              `yaml:"editable_attr"`
	EditableValue   string              `yaml:"editable_value"`
	Sections        map[string][]string `yaml:"sections"` // section name -> landmark classes
	AccentHostClass string              `yaml:"accent_host_class"`
	IgnoreClasses   []string            `yaml:"ignore_classes"`
}

// StorageConfig selects the backend and the key layout.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory | bolt | sqlite
	Path          string `yaml:"path"`
	PrimaryKey    string `yaml:"primary_key"`
	BackupKey     string `yaml:"backup_key"`
	HistoryPrefix string `yaml:"history_prefix"`
	Retention     int    `yaml:"retention"`
	QuotaBytes    int64  `yaml:"quota_bytes"` // memory backend only
}

// SaveConfig controls when saves run and what they capture.
type SaveConfig struct {
	Debounce        time.Duration `yaml:"debounce"`
	Interval        time.Duration `yaml:"interval"`
	CaptureHTML     bool          `yaml:"capture_html"`
	CaptureSections []string      `yaml:"capture_sections"`
}

// SharedConfig controls the cross-instance broadcast key.
type SharedConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Key          string        `yaml:"key"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// NotifyConfig controls toasts.
type NotifyConfig struct {
	ToastTTL time.Duration `yaml:"toast_ttl"`
	Sinks    []SinkConfig  `yaml:"sinks"`
}

// SinkConfig defines a notice output.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// HTTPConfig controls the serve command.
type HTTPConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Validate rejects values applyDefaults cannot repair.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "bolt", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for backend %q", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}
	for _, s := range c.Notify.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: webhook sink needs a url")
			}
		default:
			return fmt.Errorf("config: unknown sink type %q", s.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Page.EditableAttr == "" {
		c.Page.EditableAttr = "contenteditable"
	}
	if c.Page.EditableValue == "" {
		c.Page.EditableValue = "true"
	}
	if len(c.Page.Sections) == 0 {
		c.Page.Sections = map[string][]string{
			"welcome":      {"welcome", "welcome-section"},
			"agenda":       {"agenda", "agenda-section"},
			"participants": {"participants", "participants-section"},
			"info":         {"info", "info-section"},
		}
	}
	if c.Page.AccentHostClass == "" {
		c.Page.AccentHostClass = "time-slot"
	}
	if c.Page.IgnoreClasses == nil {
		c.Page.IgnoreClasses = []string{"editing", "dragging", "drag-over"}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.PrimaryKey == "" {
		c.Storage.PrimaryKey = "offsite-data"
	}
	if c.Storage.BackupKey == "" {
		c.Storage.BackupKey = c.Storage.PrimaryKey + "-backup"
	}
	if c.Storage.HistoryPrefix == "" {
		c.Storage.HistoryPrefix = c.Storage.PrimaryKey + "-history-"
	}
	if c.Storage.Retention <= 0 {
		c.Storage.Retention = 5
	}
	if c.Storage.QuotaBytes <= 0 {
		c.Storage.QuotaBytes = 5 << 20
	}

	if c.Save.Debounce <= 0 {
		c.Save.Debounce = time.Second
	}
	if c.Save.Interval <= 0 {
		c.Save.Interval = 5 * time.Second
	}

	if c.Shared.Key == "" {
		c.Shared.Key = "offsite-shared"
	}
	if c.Shared.PollInterval <= 0 {
		c.Shared.PollInterval = 2 * time.Second
	}
	if c.Shared.Debounce <= 0 {
		c.Shared.Debounce = 250 * time.Millisecond
	}

	if c.Notify.ToastTTL <= 0 {
		c.Notify.ToastTTL = 3 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8090"
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
}
