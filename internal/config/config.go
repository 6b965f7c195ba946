// Package config loads and validates the site configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DateType selects which date a page falls back to when frontmatter has none.
type DateType string

const (
	DateTypeCreated   DateType = "created"
	DateTypeModified  DateType = "modified"
	DateTypePublished DateType = "published"
)

// SiteConfig holds site-wide presentation settings.
type SiteConfig struct {
	PageTitle       string   `yaml:"page_title"`
	Tagline         string   `yaml:"tagline,omitempty"`
	PageTitleSuffix string   `yaml:"page_title_suffix,omitempty"`
	BaseURL         string   `yaml:"base_url,omitempty"`
	Locale          string   `yaml:"locale,omitempty"`
	IgnorePatterns  []string `yaml:"ignore_patterns,omitempty"`
	DefaultDateType DateType `yaml:"default_date_type,omitempty"`
}

// PathsConfig locates the content tree and derived artifacts on disk.
type PathsConfig struct {
	ContentRoot string `yaml:"content_root"`
	CacheRoot   string `yaml:"cache_root"`
	StylesDir   string `yaml:"styles_dir,omitempty"`
	ScriptsDir  string `yaml:"scripts_dir,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string `yaml:"addr,omitempty"`
	ReadTimeout  int    `yaml:"read_timeout_seconds,omitempty"`
	WriteTimeout int    `yaml:"write_timeout_seconds,omitempty"`
}

// EventsConfig configures the optional NATS render-event publisher.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// GitSyncConfig configures optional content-tree synchronization from a git
// remote before prebuild. Empty remote disables it.
type GitSyncConfig struct {
	Remote string `yaml:"remote,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// DaemonConfig tunes the serve-mode watcher and scheduler.
type DaemonConfig struct {
	Watch                     bool `yaml:"watch,omitempty"`
	PrebuildIntervalMin       int  `yaml:"prebuild_interval_minutes,omitempty"`
	WatchDebounceMilliseconds int  `yaml:"watch_debounce_ms,omitempty"`
}

// Config is the root configuration object supplied to the engine and server.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Paths   PathsConfig   `yaml:"paths"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Theme   ThemeConfig   `yaml:"theme"`
	Events  EventsConfig  `yaml:"events,omitempty"`
	GitSync GitSyncConfig `yaml:"git_sync,omitempty"`
	Daemon  DaemonConfig  `yaml:"daemon,omitempty"`

	// path remembers where the config was loaded from so the engine can use
	// its mtime as a cache dependency. Empty for built-in defaults.
	path string
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			PageTitle:       "Trellis",
			Locale:          "en-US",
			IgnorePatterns:  []string{"private", "templates", ".obsidian"},
			DefaultDateType: DateTypeModified,
		},
		Paths: PathsConfig{
			ContentRoot: "content",
			CacheRoot:   "build",
			StylesDir:   "assets/styles",
			ScriptsDir:  "assets/scripts",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15,
			WriteTimeout: 30,
		},
		Theme: DefaultTheme(),
		Daemon: DaemonConfig{
			Watch:                     true,
			PrebuildIntervalMin:       30,
			WatchDebounceMilliseconds: 500,
		},
	}
}

// Load reads configuration from a YAML file, applying defaults for any
// omitted section. A missing file yields the defaults without error so a bare
// checkout still serves.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Paths.ContentRoot == "" {
		return fmt.Errorf("paths.content_root is required")
	}
	if c.Paths.CacheRoot == "" {
		return fmt.Errorf("paths.cache_root is required")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	return nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string { return c.path }

// WatchDebounce returns the watcher debounce window.
func (c *Config) WatchDebounce() time.Duration {
	ms := c.Daemon.WatchDebounceMilliseconds
	if ms <= 0 {
		ms = 500
	}
	return time.Duration(ms) * time.Millisecond
}

// PrebuildInterval returns the periodic prebuild interval, zero when disabled.
func (c *Config) PrebuildInterval() time.Duration {
	if c.Daemon.PrebuildIntervalMin <= 0 {
		return 0
	}
	return time.Duration(c.Daemon.PrebuildIntervalMin) * time.Minute
}
