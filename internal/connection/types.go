package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrStale         = errors.New("connection stale (no ping)")
	ErrAlreadyClosed = errors.New("already closed")
	ErrAuthRejected  = errors.New("authentication rejected")
	ErrAuthTimeout   = errors.New("authentication timed out")
)

// State is the connection lifecycle state. The Manager owns it; every
// other component only reads it.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Wire event names. auth/auth_ok/auth_error are consumed by the Manager;
// everything else flows through to the stream adapter.
const (
	EventAuth        = "auth"
	EventAuthOK      = "auth_ok"
	EventAuthError   = "auth_error"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"

	EventCreditUpdate     = "credit_update"
	EventBalanceUpdate    = "balance_update"
	EventSpinResult       = "spin_result"
	EventWithdrawalStatus = "withdrawal_status"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TimestampedFrame is a decoded inbound frame with its local receive
// time. The client produces these; raw bytes never leave it.
type TimestampedFrame struct {
	Event      string
	Data       json.RawMessage
	ReceivedAt time.Time
}

// RawKind distinguishes lifecycle notifications from server data frames.
type RawKind int

const (
	KindLifecycle RawKind = iota
	KindData
)

// RawEvent is what the Manager emits to the stream adapter: either a
// lifecycle transition or a decoded wire frame, in receipt order.
type RawEvent struct {
	Kind RawKind

	// Lifecycle fields
	State State
	Err   error

	// Data fields
	Event string
	Data  json.RawMessage

	ReceivedAt time.Time
}

// authPayload is the client -> server auth frame body.
type authPayload struct {
	Token string `json:"token"`
}

// ClientConfig configures a single WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL
	Token        string        // Bearer token for the handshake header
	PingTimeout  time.Duration // Max silence before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1024,
	}
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	URL            string        // WebSocket URL
	Token          string        // Opaque session token (identity derivation is external)
	ReconnectDelay time.Duration // Fixed wait before a reconnect attempt
	AuthTimeout    time.Duration // Max wait for auth_ok after connecting
	PingTimeout    time.Duration
	WriteTimeout   time.Duration
	BufferSize     int // Buffer size for the outbound RawEvent channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectDelay: 3 * time.Second,
		AuthTimeout:    10 * time.Second,
		PingTimeout:    60 * time.Second,
		WriteTimeout:   5 * time.Second,
		BufferSize:     1024,
	}
}
