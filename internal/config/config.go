// Package config handles Harbordesk configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/harborops/harbordesk/internal/models"
)

// Config is the root configuration structure for Harbordesk.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Gateway settings for the marketplace platform connection
	Gateway GatewayConfig `yaml:"gateway" mapstructure:"gateway"`

	// Actor identifies the signed-in marketplace user
	Actor ActorConfig `yaml:"actor" mapstructure:"actor"`

	// Cache settings for the offline inbox cache
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global Harbordesk settings.
type GlobalConfig struct {
	// DataDir is where Harbordesk stores its data (default: ~/.local/share/harbordesk).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/harbordesk).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// GatewayConfig contains connection settings for the platform gateway.
// An empty PushURL runs the console in local demo mode.
type GatewayConfig struct {
	// APIURL is the HTTP endpoint for outbound intents.
	APIURL string `yaml:"api_url" mapstructure:"api_url"`

	// Token authenticates requests to the gateway.
	Token string `yaml:"token" mapstructure:"token"`

	// PushURL is the websocket endpoint for inbound push events.
	PushURL string `yaml:"push_url" mapstructure:"push_url"`

	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// ReconnectMin is the initial reconnect backoff.
	ReconnectMin time.Duration `yaml:"reconnect_min" mapstructure:"reconnect_min"`

	// ReconnectMax caps the reconnect backoff.
	ReconnectMax time.Duration `yaml:"reconnect_max" mapstructure:"reconnect_max"`
}

// ActorConfig identifies the signed-in user.
type ActorConfig struct {
	// ID is the marketplace user id; own messages and receipts are
	// recognized by it.
	ID int64 `yaml:"id" mapstructure:"id"`

	// DisplayName is shown in the composer status line.
	DisplayName string `yaml:"display_name" mapstructure:"display_name"`
}

// CacheConfig contains offline cache settings.
type CacheConfig struct {
	// Path is the SQLite cache file path.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// PageSize is how many messages each history page requests.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// ShowTimestamps shows timestamps next to messages.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// CompactMode uses a more compact layout.
	CompactMode bool `yaml:"compact_mode" mapstructure:"compact_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "harbordesk"),
			ConfigDir: filepath.Join(homeDir, ".config", "harbordesk"),
		},
		Gateway: GatewayConfig{
			DialTimeout:  5 * time.Second,
			ReconnectMin: 1 * time.Second,
			ReconnectMax: 30 * time.Second,
		},
		Cache: CacheConfig{
			Path: "", // Will be set to DataDir/cache.db
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			Theme:          "default",
			PageSize:       50,
			ShowTimestamps: true,
			CompactMode:    false,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	errs := &models.ValidationErrors{}

	if c.Gateway.APIURL != "" {
		u, err := url.Parse(c.Gateway.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.AddMessage("gateway.api_url", "must be an http:// or https:// URL")
		}
	}
	if c.Gateway.PushURL != "" {
		u, err := url.Parse(c.Gateway.PushURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			errs.AddMessage("gateway.push_url", "must be a ws:// or wss:// URL")
		}
	}

	if c.Gateway.ReconnectMin <= 0 {
		errs.AddMessage("gateway.reconnect_min", "must be positive")
	} else if c.Gateway.ReconnectMax < c.Gateway.ReconnectMin {
		errs.AddMessage("gateway.reconnect_max", "must be at least gateway.reconnect_min")
	}

	if c.Actor.ID < 0 {
		errs.AddMessage("actor.id", "must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs.AddMessage("logging.level", "must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs.AddMessage("logging.format", "must be json or console")
	}

	if c.TUI.PageSize < 1 {
		errs.AddMessage("tui.page_size", "must be at least 1")
	}

	return errs.Err()
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// CachePath returns the full cache database path.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Global.DataDir, "cache.db")
}

// LocalMode reports whether the console runs against the in-process
// demo backend instead of a gateway.
func (c *Config) LocalMode() bool {
	return c.Gateway.APIURL == ""
}
