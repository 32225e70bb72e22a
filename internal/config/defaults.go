package config

import "time"

// Default values for optional configuration fields. The 3s reconnect, 4s
// settle delay and 5 full rotations mirror the product's presentation
// timing; none of them is an invariant.
const (
	DefaultRestURL        = "https://api.wheel.example.com/v1"
	DefaultWSURL          = "wss://push.wheel.example.com/v1/stream"
	DefaultAPITimeout     = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultReconnectDelay = 3 * time.Second
	DefaultAuthTimeout    = 10 * time.Second
	DefaultPingTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultBufferSize     = 1024
	DefaultSettleDelay    = 4 * time.Second
	DefaultFullRotations  = 5
	DefaultFallbackDelay  = 5 * time.Second
	DefaultMaxWait        = 2 * time.Minute
	DefaultMetricsPort    = 9090
	DefaultMetricsPath    = "/metrics"
)

func (c *SessionConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Connection defaults
	if c.Connection.ReconnectDelay == 0 {
		c.Connection.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Connection.AuthTimeout == 0 {
		c.Connection.AuthTimeout = DefaultAuthTimeout
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Spin defaults
	if c.Spin.SettleDelay == 0 {
		c.Spin.SettleDelay = DefaultSettleDelay
	}
	if c.Spin.FullRotations == 0 {
		c.Spin.FullRotations = DefaultFullRotations
	}

	// Withdraw defaults
	if c.Withdraw.FallbackDelay == 0 {
		c.Withdraw.FallbackDelay = DefaultFallbackDelay
	}
	if c.Withdraw.MaxWait == 0 {
		c.Withdraw.MaxWait = DefaultMaxWait
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
