package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatlytics/logmonitor/pkg/types"
)

// Config represents the main configuration
type Config struct {
	Monitor       MonitorConfig       `yaml:"monitor"`
	Patterns      PatternsConfig      `yaml:"patterns"`
	Aggregator    AggregatorConfig    `yaml:"aggregator"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Reports       ReportsConfig       `yaml:"reports"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Checkpoint    CheckpointConfig    `yaml:"checkpoint"`
	Logging       LoggingConfig       `yaml:"logging"`
	Server        ServerConfig        `yaml:"server"`
}

// MonitorConfig defines the polling loop configuration
type MonitorConfig struct {
	LogFile       string        `yaml:"log_file"`
	CheckInterval time.Duration `yaml:"check_interval"`
	// FromBeginning scans the whole file on start instead of only new content.
	FromBeginning bool `yaml:"from_beginning"`
	// Watch arms a filesystem watcher that wakes the loop early on writes.
	// Interval polling stays active either way.
	Watch bool `yaml:"watch"`
}

// PatternRule pairs a regular expression with the category it implies.
// Patterns are matched case-insensitively. Category is unused on ignore rules.
type PatternRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category,omitempty"`
}

// PatternsConfig defines the interest and ignore pattern sets
type PatternsConfig struct {
	Interest []PatternRule `yaml:"interest,omitempty"`
	Ignore   []PatternRule `yaml:"ignore,omitempty"`
}

// AggregatorConfig defines context capture and deduplication
type AggregatorConfig struct {
	ContextLines int           `yaml:"context_lines"`
	DedupWindow  time.Duration `yaml:"dedup_window"`
}

// RateLimitConfig caps reports per rolling window
type RateLimitConfig struct {
	MaxReports int           `yaml:"max_reports"`
	Window     time.Duration `yaml:"window"`
}

// ReportsConfig defines local persistence and remote delivery of reports
type ReportsConfig struct {
	Dir           string        `yaml:"dir"`
	RetentionDays int           `yaml:"retention_days"`
	RemoteURL     string        `yaml:"remote_url,omitempty"`
	RemoteTimeout time.Duration `yaml:"remote_timeout,omitempty"`
	// Project and Files are forwarded verbatim in the remote payload context.
	Project string   `yaml:"project,omitempty"`
	Files   []string `yaml:"files,omitempty"`
}

// NotificationsConfig defines optional notification channels
type NotificationsConfig struct {
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`
}

// TelegramConfig defines the Telegram admin notification channel
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

// CheckpointConfig defines optional cursor persistence across restarts
type CheckpointConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// LoggingConfig defines the monitor's own logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	// File enables a rotating log file in addition to stdout.
	File        string `yaml:"file,omitempty"`
	MaxSizeMB   int    `yaml:"max_size_mb,omitempty"`
	MaxAgeDays  int    `yaml:"max_age_days,omitempty"`
	MaxBackups  int    `yaml:"max_backups,omitempty"`
	CompressOld bool   `yaml:"compress_old,omitempty"`
}

// ServerConfig defines the optional ops HTTP listener (/metrics, /healthz)
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// Default values
const (
	DefaultLogFile            = "bot.log"
	DefaultCheckInterval      = 30 * time.Second
	DefaultContextLines       = 5
	DefaultDedupWindow        = 5 * time.Minute
	DefaultMaxReports         = 10
	DefaultRateWindow         = time.Hour
	DefaultReportsDir         = "error_reports"
	DefaultRetentionDays      = 7
	DefaultRemoteTimeout      = 10 * time.Second
	DefaultCheckpointDir      = ".monitor"
	DefaultCheckpointInterval = 5 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultServerAddress      = ":9402"
)

// DefaultInterestPatterns returns the built-in interest pattern set. It is
// configuration data: a patterns.interest section replaces it wholesale.
func DefaultInterestPatterns() []PatternRule {
	return []PatternRule{
		{Pattern: `CRITICAL`, Category: string(types.CategoryCritical)},
		{Pattern: `FATAL`, Category: string(types.CategoryCritical)},
		{Pattern: `panic:`, Category: string(types.CategoryCritical)},
		{Pattern: `Exception`, Category: string(types.CategoryException)},
		{Pattern: `Traceback`, Category: string(types.CategoryException)},
		{Pattern: `ERROR`, Category: string(types.CategoryError)},
		{Pattern: `Failed to`, Category: string(types.CategoryError)},
		{Pattern: `Unable to`, Category: string(types.CategoryError)},
		{Pattern: `Connection.*error`, Category: string(types.CategoryError)},
		{Pattern: `Timeout`, Category: string(types.CategoryError)},
		{Pattern: `Database.*error`, Category: string(types.CategoryError)},
		{Pattern: `Telegram.*error`, Category: string(types.CategoryError)},
		{Pattern: `Webhook.*error`, Category: string(types.CategoryError)},
		{Pattern: `❌`, Category: string(types.CategoryUserError)},
	}
}

// DefaultIgnorePatterns returns the built-in ignore pattern set.
func DefaultIgnorePatterns() []PatternRule {
	return []PatternRule{
		{Pattern: `^INFO`},
		{Pattern: `^DEBUG`},
		{Pattern: `\w*Warning`},
	}
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns a default configuration
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with all defaults applied
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for unspecified configuration
func (c *Config) applyDefaults() {
	if c.Monitor.LogFile == "" {
		c.Monitor.LogFile = DefaultLogFile
	}
	if c.Monitor.CheckInterval == 0 {
		c.Monitor.CheckInterval = DefaultCheckInterval
	}
	if len(c.Patterns.Interest) == 0 {
		c.Patterns.Interest = DefaultInterestPatterns()
	}
	if len(c.Patterns.Ignore) == 0 {
		c.Patterns.Ignore = DefaultIgnorePatterns()
	}
	if c.Aggregator.ContextLines == 0 {
		c.Aggregator.ContextLines = DefaultContextLines
	}
	if c.Aggregator.DedupWindow == 0 {
		c.Aggregator.DedupWindow = DefaultDedupWindow
	}
	if c.RateLimit.MaxReports == 0 {
		c.RateLimit.MaxReports = DefaultMaxReports
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultRateWindow
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = DefaultReportsDir
	}
	if c.Reports.RetentionDays == 0 {
		c.Reports.RetentionDays = DefaultRetentionDays
	}
	if c.Reports.RemoteTimeout == 0 {
		c.Reports.RemoteTimeout = DefaultRemoteTimeout
	}
	if c.Checkpoint.Dir == "" {
		c.Checkpoint.Dir = DefaultCheckpointDir
	}
	if c.Checkpoint.Interval == 0 {
		c.Checkpoint.Interval = DefaultCheckpointInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultServerAddress
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Monitor.LogFile == "" {
		return fmt.Errorf("monitor.log_file must be set")
	}
	if c.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be positive")
	}

	for i, rule := range c.Patterns.Interest {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("interest pattern %d: %w", i, err)
		}
		if _, ok := types.ParseCategory(rule.Category); !ok {
			return fmt.Errorf("interest pattern %d has unknown category %q", i, rule.Category)
		}
	}
	for i, rule := range c.Patterns.Ignore {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("ignore pattern %d: %w", i, err)
		}
	}

	if c.Aggregator.ContextLines < 0 {
		return fmt.Errorf("aggregator.context_lines must not be negative")
	}
	if c.Aggregator.DedupWindow < 0 {
		return fmt.Errorf("aggregator.dedup_window must not be negative")
	}
	if c.RateLimit.MaxReports <= 0 {
		return fmt.Errorf("rate_limit.max_reports must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	if c.Reports.Dir == "" {
		return fmt.Errorf("reports.dir must be set")
	}

	if tg := c.Notifications.Telegram; tg != nil && tg.Enabled {
		if tg.Token == "" || tg.ChatID == "" {
			return fmt.Errorf("notifications.telegram requires token and chat_id when enabled")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
