package spin

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spinlabs/wheel-client/internal/model"
)

// Errors
var (
	// ErrNoCreditsAvailable is a local precondition failure: no free spin,
	// extra spin or ticket remains. No network call is made.
	ErrNoCreditsAvailable = errors.New("no spin credits available")

	// ErrSpinInFlight signals the single-flight guard: a spin settlement is
	// outstanding. The UI boundary treats this as "ignore the tap", not as
	// a user-facing failure.
	ErrSpinInFlight = errors.New("spin already in flight")

	// ErrPurchaseInFlight signals the purchase single-flight guard.
	ErrPurchaseInFlight = errors.New("purchase already in flight")

	// ErrInvalidQuantity rejects non-positive purchase quantities locally.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// State is the settlement state of a spin request.
type State string

const (
	StateIdle                 State = "idle"
	StatePending              State = "pending"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// Config holds the presentation constants. They come from configuration,
// not hard invariants.
type Config struct {
	// SettleDelay is how long a reply-confirmed spin stays in
	// AwaitingConfirmation before surfacing, bound to the wheel animation.
	// The single-flight guard is held for the whole delay.
	SettleDelay time.Duration

	// FullRotations is the number of extra full turns added to the target
	// angle, purely presentational.
	FullRotations int
}

// DefaultConfig returns the stock presentation constants.
func DefaultConfig() Config {
	return Config{
		SettleDelay:   4 * time.Second,
		FullRotations: 5,
	}
}

// Resolution is a spin state transition surfaced to the UI layer.
type Resolution struct {
	LocalID     uuid.UUID
	Source      model.SpinSource
	State       State
	Outcome     *model.SpinOutcome
	TargetAngle float64
	Err         error
}
