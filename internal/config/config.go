package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Scan     ScanConfig     `yaml:"scan"`
	Process  ProcessConfig  `yaml:"process"`
	Snippet  SnippetConfig  `yaml:"snippet"`
	Watcher  WatcherConfig  `yaml:"watcher"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ScanConfig struct {
	// Roots are the directories scanned for application bundles. Paths may
	// start with "~/" and are expanded against the user home at scan time.
	Roots []string `yaml:"roots"`
}

type ProcessConfig struct {
	PollInterval string `yaml:"poll_interval"`
	SettleDelay  string `yaml:"settle_delay"`
	PollAttempts int    `yaml:"poll_attempts"`
}

type SnippetConfig struct {
	DisguiseName         string `yaml:"disguise_name"`
	DockReassertInterval string `yaml:"dock_reassert_interval"`
	DockReassertAttempts int    `yaml:"dock_reassert_attempts"`
}

type WatcherConfig struct {
	Enabled           *bool  `yaml:"enabled"`
	Debounce          string `yaml:"debounce"`
	ReconcileInterval string `yaml:"reconcile_interval"`
}

func (c *ProcessConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

func (c *ProcessConfig) GetSettleDelay() time.Duration {
	d, err := time.ParseDuration(c.SettleDelay)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

func (c *ProcessConfig) GetPollAttempts() int {
	if c.PollAttempts <= 0 {
		return 10
	}
	return c.PollAttempts
}

func (c *SnippetConfig) GetDockReassertInterval() time.Duration {
	d, err := time.ParseDuration(c.DockReassertInterval)
	if err != nil || d <= 0 {
		return 1500 * time.Millisecond
	}
	return d
}

func (c *WatcherConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

func (c *WatcherConfig) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetReconcileInterval returns the periodic sweep interval. A configured
// value of "0" disables the sweep (fsnotify still runs).
func (c *WatcherConfig) GetReconcileInterval() time.Duration {
	if c.ReconcileInterval == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(c.ReconcileInterval)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

// Load reads the config file at path. A missing file is not an error: the
// daemon runs on defaults so first launch needs no setup.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 48620
	}
	if cfg.Database.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Database.Path = filepath.Join(home, ".ghostframe", "ghostframe.db")
		} else {
			cfg.Database.Path = "./data/ghostframe.db"
		}
	}
	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = []string{"/Applications", "~/Applications"}
	}
	if cfg.Process.PollInterval == "" {
		cfg.Process.PollInterval = "500ms"
	}
	if cfg.Process.PollAttempts == 0 {
		cfg.Process.PollAttempts = 10
	}
	if cfg.Process.SettleDelay == "" {
		cfg.Process.SettleDelay = "1s"
	}
	if cfg.Snippet.DisguiseName == "" {
		cfg.Snippet.DisguiseName = "com.apple.WebKit.Networking"
	}
	if cfg.Snippet.DockReassertInterval == "" {
		cfg.Snippet.DockReassertInterval = "1500ms"
	}
	if cfg.Snippet.DockReassertAttempts == 0 {
		cfg.Snippet.DockReassertAttempts = 20
	}
	if cfg.Watcher.Debounce == "" {
		cfg.Watcher.Debounce = "2s"
	}
	if cfg.Watcher.ReconcileInterval == "" {
		cfg.Watcher.ReconcileInterval = "5m"
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".ghostframe", "config.yaml")
}

// TokenPath returns the daemon API token file location. The daemon writes
// it on first run when no auth_token is configured; the CLI reads it.
func TokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "token"
	}
	return filepath.Join(home, ".ghostframe", "token")
}
