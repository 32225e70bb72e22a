package api

import (
	"github.com/shopspring/decimal"

	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/model"
)

// SpinData is the payload of a successful spin reply: the chosen outcome,
// the authoritative post-spin counters, and next-availability timestamps.
type SpinData struct {
	Result   model.SpinOutcome `json:"result"`
	Counters ledger.Partial    `json:"counters"`

	// Next-availability timestamps (unix seconds, 0 = available now).
	NextFreeSpinAt int64 `json:"next_free_spin_at,omitempty"`
	NextAdSpinAt   int64 `json:"next_ad_spin_at,omitempty"`
}

// PurchaseData is the payload of a successful ticket purchase: the
// server-computed absolute ticket total and remaining balance.
type PurchaseData struct {
	Counters ledger.Partial `json:"counters"`
}

// WithdrawalRequest is the body of a withdrawal submission. LocalID is
// client-generated and correlates later push status events.
type WithdrawalRequest struct {
	LocalID  string          `json:"local_id"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Address  string          `json:"address"`
}

// WithdrawalData is the synchronous acknowledgement of a submission. The
// terminal outcome usually arrives later over the push channel.
type WithdrawalData struct {
	LocalID string `json:"local_id"`
	Status  string `json:"status"`
}

// spinRequest is the body of a spin call.
type spinRequest struct {
	Source model.SpinSource `json:"source"`
}

// purchaseRequest is the body of a ticket purchase call.
type purchaseRequest struct {
	Quantity int `json:"quantity"`
}

// stateData wraps the full-state fetch payload.
type stateData struct {
	State ledger.Snapshot `json:"state"`
}

// configData wraps the configuration snapshot payload.
type configData struct {
	Config model.WheelConfig `json:"config"`
}
