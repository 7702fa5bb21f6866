package config

import (
	"fmt"
	"strings"
)

// Validate checks the config and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Slack.BotToken == "" {
		errs = append(errs, fmt.Sprintf("slack.botToken is required (or set %s)", EnvBotToken))
	} else if !strings.HasPrefix(cfg.Slack.BotToken, "xoxb-") {
		errs = append(errs, "slack.botToken must be a bot token (xoxb-...)")
	}

	if cfg.Slack.AppToken == "" {
		errs = append(errs, fmt.Sprintf("slack.appToken is required for Socket Mode (or set %s)", EnvAppToken))
	} else if !strings.HasPrefix(cfg.Slack.AppToken, "xapp-") {
		errs = append(errs, "slack.appToken must be an app-level token (xapp-...)")
	}

	if cfg.Slack.ChannelID == "" {
		errs = append(errs, fmt.Sprintf("slack.channelID is required (or set %s)", EnvChannelID))
	}

	if cfg.Slack.ConnectionTimeoutMS <= 0 {
		errs = append(errs, "slack.connectionTimeoutMs must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if cfg.Database.Enabled && cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required when database is enabled")
	}

	if cfg.Ops.Enabled {
		if cfg.Ops.Addr == "" {
			errs = append(errs, "ops.addr is required when ops is enabled")
		}
		if cfg.Ops.RequestsPerMinute <= 0 {
			errs = append(errs, "ops.requestsPerMinute must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
