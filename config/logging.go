package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines the log verbosity.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error. Empty defers to
	// LOG_LEVEL.
	Level string `json:"level"`
}

// SetDefaults normalises the level.
func (c *LoggingConfig) SetDefaults() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
}

// Validate checks the level name.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "", "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging: unknown level %s", c.Level)
	}
}
