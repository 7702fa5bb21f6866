package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvBotToken          = "SLACK_BOT_TOKEN"
	EnvAppToken          = "SLACK_APP_TOKEN"
	EnvChannelID         = "SLACK_CHANNEL_ID"
	EnvConnectionTimeout = "SLACK_CONNECTION_TIMEOUT_MS"
	EnvLogLevel          = "ASKUSER_LOG_LEVEL"
)

type Config struct {
	Slack    SlackConfig    `yaml:"slack"`
	Ops      OpsConfig      `yaml:"ops"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type SlackConfig struct {
	BotToken            string `yaml:"botToken"`
	AppToken            string `yaml:"appToken"`
	ChannelID           string `yaml:"channelID"`
	ConnectionTimeoutMS int    `yaml:"connectionTimeoutMs"`
	Debug               bool   `yaml:"debug"`
}

// ConnectionTimeout converts the millisecond setting to a duration.
func (c SlackConfig) ConnectionTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutMS) * time.Millisecond
}

// OpsConfig controls the optional health and metrics listener.
type OpsConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	Token             string        `yaml:"token"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
}

// DatabaseConfig controls the optional interaction history store.
type DatabaseConfig struct {
	Enabled bool         `yaml:"enabled"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

// LoggingConfig selects level and handler. Output is always stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds a Config from defaults, an optional YAML file and the
// environment, in that order, then validates it. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Slack: SlackConfig{
			ConnectionTimeoutMS: 30000,
		},
		Ops: OpsConfig{
			Enabled:           false,
			Addr:              "127.0.0.1:9464",
			RequestsPerMinute: 120,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled: false,
			SQLite: SQLiteConfig{
				Path:              "askuser-history.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBotToken); ok && v != "" {
		cfg.Slack.BotToken = v
	}
	if v, ok := lookup(EnvAppToken); ok && v != "" {
		cfg.Slack.AppToken = v
	}
	if v, ok := lookup(EnvChannelID); ok && v != "" {
		cfg.Slack.ChannelID = v
	}
	if v, ok := lookup(EnvConnectionTimeout); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer number of milliseconds: %w", EnvConnectionTimeout, err)
		}
		cfg.Slack.ConnectionTimeoutMS = ms
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
