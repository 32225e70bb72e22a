package stream

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/model"
)

// Event is the closed set of stream events. Wire frames are decoded once
// at the adapter boundary; consumers type-switch over these variants
// instead of matching message-type strings.
type Event interface {
	isEvent()
}

// ConnectionUp is emitted when the transport handshake completes.
type ConnectionUp struct {
	At time.Time
}

// ConnectionDown is emitted on any transport loss or server close.
type ConnectionDown struct {
	At  time.Time
	Err error
}

// Authenticated is emitted when the server accepts the session token.
type Authenticated struct {
	At time.Time
}

// CreditUpdate carries a partial credit-counter update pushed by the
// server (free/extra spins, tickets).
type CreditUpdate struct {
	At     time.Time
	Fields ledger.Partial
}

// BalanceUpdate carries currency balance changes pushed by the server,
// possibly caused by activity on another device.
type BalanceUpdate struct {
	At       time.Time
	Balances map[string]decimal.Decimal
}

// SpinOutcomePush carries a spin outcome delivered over the push channel.
type SpinOutcomePush struct {
	At      time.Time
	Outcome model.SpinOutcome
}

// WithdrawalOutcome is the terminal status a withdrawal push reports.
type WithdrawalOutcome string

const (
	WithdrawalSucceeded WithdrawalOutcome = "succeeded"
	WithdrawalFailed    WithdrawalOutcome = "failed"
)

// WithdrawalStatus reports a status change for a submitted withdrawal,
// correlated by the client-generated local id.
type WithdrawalStatus struct {
	At      time.Time
	LocalID string
	Outcome WithdrawalOutcome
	Reason  string
}

func (ConnectionUp) isEvent()     {}
func (ConnectionDown) isEvent()   {}
func (Authenticated) isEvent()    {}
func (CreditUpdate) isEvent()     {}
func (BalanceUpdate) isEvent()    {}
func (SpinOutcomePush) isEvent()  {}
func (WithdrawalStatus) isEvent() {}
