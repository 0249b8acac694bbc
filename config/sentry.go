package config

import "fmt"

// SentryConfig enables error reporting to Sentry. An empty DSN disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// Validate rejects a sample rate outside [0, 1].
func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("sentry: traces_sample_rate must be in [0, 1], got %g", c.TracesSampleRate)
	}
	return nil
}
