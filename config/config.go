package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName is used for the configuration directory and user-visible labels.
const AppName = "shortcutai"

type Config struct {
	Transform TransformConfig `toml:"transform"`
	Timing    TimingConfig    `toml:"timing"`
	Overlay   OverlayConfig   `toml:"overlay"`
	Web       WebConfig       `toml:"web"`
	Tray      TrayConfig      `toml:"tray"`
	Cue       CueConfig       `toml:"cue"`
	History   HistoryConfig   `toml:"history"`

	path string
}

type TransformConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the request bound for a single transform call.
func (t TransformConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// TimingConfig holds the settle delays used around synthetic input. All
// values are milliseconds.
type TimingConfig struct {
	ClearSettleMs    int `toml:"clear_settle_ms"`
	CopySettleMs     int `toml:"copy_settle_ms"`
	RetryIntervalMs  int `toml:"retry_interval_ms"`
	MaxRetries       int `toml:"max_retries"`
	RecopyAttempt    int `toml:"recopy_attempt"`
	RecaptureDelayMs int `toml:"recapture_delay_ms"`
	FocusSettleMs    int `toml:"focus_settle_ms"`
	PasteSettleMs    int `toml:"paste_settle_ms"`
}

type OverlayConfig struct {
	Width     int `toml:"width"`
	RowHeight int `toml:"row_height"`
	Padding   int `toml:"padding"`
	// Work area used when the platform cannot report display geometry.
	FallbackWidth  int `toml:"fallback_width"`
	FallbackHeight int `toml:"fallback_height"`
}

type WebConfig struct {
	Enabled     bool `toml:"enabled"`
	Port        int  `toml:"port"`
	OpenOnStart bool `toml:"open_on_start"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

type CueConfig struct {
	Enabled bool    `toml:"enabled"`
	Volume  float64 `toml:"volume"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

// Ms converts a millisecond config value into a duration.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		Transform: TransformConfig{
			Provider:       "openai",
			APIKey:         "",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			TimeoutSeconds: 60,
		},
		Timing: TimingConfig{
			ClearSettleMs:    50,
			CopySettleMs:     250,
			RetryIntervalMs:  120,
			MaxRetries:       8,
			RecopyAttempt:    3,
			RecaptureDelayMs: 80,
			FocusSettleMs:    150,
			PasteSettleMs:    150,
		},
		Overlay: OverlayConfig{
			Width:          260,
			RowHeight:      38,
			Padding:        16,
			FallbackWidth:  1920,
			FallbackHeight: 1080,
		},
		Web: WebConfig{
			Enabled:     true,
			Port:        7341,
			OpenOnStart: true,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Cue: CueConfig{
			Enabled: false,
			Volume:  0.2,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Dir returns the directory holding the config file, preset files and the
// history database, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}

	configDir := filepath.Join(base, AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the TOML file at path, or from the
// default location when path is empty.
// If the file doesn't exist, it creates it with default values
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := defaultConfig()
	cfg.path = path

	// If config doesn't exist, create it with defaults
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory of the configuration file.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// Clone returns a copy that can be modified without affecting c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Save writes the configuration to its TOML file
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(c)
}

// Validate reports values the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Transform.Provider != "openai" {
		errs = append(errs, fmt.Errorf("unknown transform provider: %q", c.Transform.Provider))
	}
	if c.Transform.Model == "" {
		errs = append(errs, fmt.Errorf("transform model must not be empty"))
	}
	if c.Transform.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("transform timeout_seconds must be positive, got %d", c.Transform.TimeoutSeconds))
	}
	if c.Timing.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("timing max_retries must not be negative, got %d", c.Timing.MaxRetries))
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		errs = append(errs, fmt.Errorf("web port out of range: %d", c.Web.Port))
	}
	if c.Cue.Volume < 0 || c.Cue.Volume > 1 {
		errs = append(errs, fmt.Errorf("cue volume must be between 0 and 1, got %v", c.Cue.Volume))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
