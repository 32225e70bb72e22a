package config

import "time"

// SessionConfig is the root configuration for one client session.
type SessionConfig struct {
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Spin       SpinConfig       `yaml:"spin"`
	Withdraw   WithdrawConfig   `yaml:"withdraw"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// APIConfig holds the REST endpoint settings. The token is opaque to the
// client; identity derivation happens elsewhere.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ConnectionConfig holds the persistent connection settings.
type ConnectionConfig struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	AuthTimeout    time.Duration `yaml:"auth_timeout"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	BufferSize     int           `yaml:"buffer_size"`
}

// SpinConfig holds the spin presentation constants.
type SpinConfig struct {
	SettleDelay   time.Duration `yaml:"settle_delay"`
	FullRotations int           `yaml:"full_rotations"`
}

// WithdrawConfig holds the withdrawal timing knobs.
type WithdrawConfig struct {
	FallbackDelay time.Duration `yaml:"fallback_delay"`
	MaxWait       time.Duration `yaml:"max_wait"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
