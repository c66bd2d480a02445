package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gatherbot/internal/fileutil"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Secrets are normally supplied through the environment
// (or a .env file) rather than written to the YAML file.

// Environment variables that override file values.
const (
	EnvToken     = "DISCORD_BOT_TOKEN"
	EnvGuildID   = "GATHERBOT_GUILD_ID"
	EnvStorePath = "GATHERBOT_STORE_PATH"
	EnvListen    = "GATHERBOT_LISTEN"
	EnvLogLevel  = "LOG_LEVEL"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DiscordConfig holds the chat platform credentials.
type DiscordConfig struct {
	Token string `yaml:"token,omitempty" json:"-"`
	// GuildID, if set, registers commands on that server only (instant
	// updates, handy in development). Empty registers them globally.
	GuildID string `yaml:"guild_id,omitempty" json:"guild_id,omitempty"`
}

// StoreConfig selects where events are persisted.
type StoreConfig struct {
	// Backend is one of "file" (default), "sqlite" or "memory".
	Backend string `yaml:"backend" json:"backend"`
	// Path is the YAML file or SQLite database path.
	Path string `yaml:"path" json:"path"`
}

// ReminderConfig controls pre-event reminders for scheduled events.
type ReminderConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Cron is a cron-style schedule string (e.g. "* * * * *") for the
	// due-reminder check.
	Cron string `yaml:"cron" json:"cron"`
	// Lead is how long before the start the reminder goes out.
	Lead time.Duration `yaml:"lead" json:"lead"`
}

// ConvertConfig controls document-to-PDF conversion of attachments.
type ConvertConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Converters are tried in order; the first one installed is used.
	Converters []string      `yaml:"converters" json:"converters"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxBytes   int64         `yaml:"max_bytes" json:"max_bytes"`
	// WorkDir holds per-conversion scratch directories. Empty means the
	// system temp directory.
	WorkDir string `yaml:"work_dir,omitempty" json:"work_dir,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	Discord DiscordConfig `yaml:"discord" json:"discord"`

	// Timezone is the IANA timezone scheduled event times are entered in
	// (e.g. "Asia/Seoul"). Empty or "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Store    StoreConfig    `yaml:"store" json:"store"`
	Reminder ReminderConfig `yaml:"reminder" json:"reminder"`
	Convert  ConvertConfig  `yaml:"convert" json:"convert"`

	// Listen is the HTTP listen address for the status API. Empty disables it.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone: "Local",
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    defaultStorePath(BackendFile),
		},
		Reminder: ReminderConfig{
			Enabled: true,
			Cron:    "* * * * *",
			Lead:    30 * time.Minute,
		},
		Convert: ConvertConfig{
			Enabled:    true,
			Converters: []string{"soffice", "libreoffice", "unoconv"},
			Timeout:    2 * time.Minute,
			MaxBytes:   25 << 20,
		},
		Listen: "127.0.0.1:8080",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = def.LogLevel
	}

	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
		// ok
	default:
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath(c.Store.Backend)
	}

	if c.Reminder.Cron == "" {
		c.Reminder.Cron = def.Reminder.Cron
	}
	if c.Reminder.Lead <= 0 {
		c.Reminder.Lead = def.Reminder.Lead
	}

	if len(c.Convert.Converters) == 0 {
		c.Convert.Converters = def.Convert.Converters
	}
	if c.Convert.Timeout <= 0 {
		c.Convert.Timeout = def.Convert.Timeout
	}
	if c.Convert.MaxBytes <= 0 {
		c.Convert.MaxBytes = def.Convert.MaxBytes
	}
}

func defaultStorePath(backend string) string {
	if backend == BackendSQLite {
		return "events.db"
	}
	return "events.yaml"
}

// ApplyEnv overrides file values with environment variables, if set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Discord.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvGuildID)); v != "" {
		c.Discord.GuildID = v
	}
	if v := strings.TrimSpace(getenv(EnvStorePath)); v != "" {
		c.Store.Path = v
	}
	if v := strings.TrimSpace(getenv(EnvListen)); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	c.Normalize()
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token missing: set %s or discord.token", EnvToken)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied separately by ApplyEnv so they never end
// up in the saved file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	// The path default depends on the backend the file picks.
	cfg.Store.Path = ""
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically with
// 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600, ".gatherbot-config-*.tmp")
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
