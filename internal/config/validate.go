package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for inconsistencies. Call after
// applyDefaults so only genuinely bad values fail.
func (c *SessionConfig) Validate() error {
	var problems []string

	if c.API.RestURL == "" {
		problems = append(problems, "api.rest_url is required")
	}
	if c.API.WSURL == "" {
		problems = append(problems, "api.ws_url is required")
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, "api.timeout must be positive")
	}
	if c.API.MaxRetries < 0 {
		problems = append(problems, "api.max_retries must not be negative")
	}
	if c.Connection.ReconnectDelay <= 0 {
		problems = append(problems, "connection.reconnect_delay must be positive")
	}
	if c.Connection.BufferSize <= 0 {
		problems = append(problems, "connection.buffer_size must be positive")
	}
	if c.Spin.SettleDelay < 0 {
		problems = append(problems, "spin.settle_delay must not be negative")
	}
	if c.Spin.FullRotations < 0 {
		problems = append(problems, "spin.full_rotations must not be negative")
	}
	if c.Withdraw.FallbackDelay <= 0 {
		problems = append(problems, "withdraw.fallback_delay must be positive")
	}
	if c.Withdraw.MaxWait <= c.Withdraw.FallbackDelay {
		problems = append(problems, "withdraw.max_wait must exceed withdraw.fallback_delay")
	}
	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		problems = append(problems, "metrics.port must be a valid port")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
