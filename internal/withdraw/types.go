package withdraw

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrNotIdle       = errors.New("withdrawal flow is not idle")
	ErrNotConfirming = errors.New("withdrawal flow is not confirming")
	ErrNotTerminal   = errors.New("withdrawal flow is not terminal")

	// ErrTimeout marks a withdrawal that saw no resolving signal within
	// the operator-defined maximum wait.
	ErrTimeout = errors.New("withdrawal timed out")
)

// State is the settlement state of the withdrawal flow.
type State string

const (
	StateIdle       State = "idle"
	StateConfirming State = "confirming"
	StateSubmitting State = "submitting"
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// terminal reports whether s is absorbing.
func (s State) terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Config holds the withdrawal timing knobs.
type Config struct {
	// FallbackDelay applies only when the push connection was never
	// established: after it elapses the synchronous reply is treated as
	// authoritative.
	FallbackDelay time.Duration

	// MaxWait bounds the whole Processing phase; elapsing resolves the
	// flow to Failed with ErrTimeout.
	MaxWait time.Duration
}

// DefaultConfig returns the stock timing knobs.
func DefaultConfig() Config {
	return Config{
		FallbackDelay: 5 * time.Second,
		MaxWait:       2 * time.Minute,
	}
}

// Request is the user-reviewed withdrawal form.
type Request struct {
	Currency string
	Amount   decimal.Decimal
	Address  string
}

// Result is a terminal withdrawal outcome surfaced to the UI layer.
type Result struct {
	LocalID uuid.UUID
	State   State
	Reason  string
	Err     error
}

// subscribePayload re-arms the withdrawal push subscription.
type subscribePayload struct {
	Channel string `json:"channel"`
}
