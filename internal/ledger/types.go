package ledger

import "github.com/shopspring/decimal"

// Snapshot is the full credit state as reported by the server.
type Snapshot struct {
	FreeSpinsUsed int `json:"free_spins_used"`
	MaxFreeSpins  int `json:"max_free_spins"`

	ExtraSpinsUnlocked int `json:"extra_spins_unlocked"`
	ExtraSpinsUsed     int `json:"extra_spins_used"`
	MaxExtraSpins      int `json:"max_extra_spins"`

	SpinTickets int `json:"spin_tickets"`

	// Balances maps currency code ("xp", "usdt") to a non-negative amount.
	Balances map[string]decimal.Decimal `json:"balances"`
}

// FreeSpinsRemaining returns max(0, maxFreeSpins - freeSpinsUsed).
func (s Snapshot) FreeSpinsRemaining() int {
	r := s.MaxFreeSpins - s.FreeSpinsUsed
	if r < 0 {
		return 0
	}
	return r
}

// ExtraSpinsRemaining returns max(0, unlocked - used), capped at
// maxExtraSpins.
func (s Snapshot) ExtraSpinsRemaining() int {
	r := s.ExtraSpinsUnlocked - s.ExtraSpinsUsed
	if r < 0 {
		r = 0
	}
	if r > s.MaxExtraSpins {
		r = s.MaxExtraSpins
	}
	return r
}

// Partial is a field-level update. Nil fields are absent from the incoming
// message and left untouched on apply. The wire shape matches both the
// credit_update push payload and the counters block of request replies, so
// either channel decodes straight into it.
type Partial struct {
	FreeSpinsUsed *int `json:"free_spins_used,omitempty"`
	MaxFreeSpins  *int `json:"max_free_spins,omitempty"`

	ExtraSpinsUnlocked *int `json:"extra_spins_unlocked,omitempty"`
	ExtraSpinsUsed     *int `json:"extra_spins_used,omitempty"`
	MaxExtraSpins      *int `json:"max_extra_spins,omitempty"`

	SpinTickets *int `json:"spin_tickets,omitempty"`

	Balances map[string]decimal.Decimal `json:"balances,omitempty"`
}

// IsZero reports whether the partial carries no fields at all.
func (p Partial) IsZero() bool {
	return p.FreeSpinsUsed == nil &&
		p.MaxFreeSpins == nil &&
		p.ExtraSpinsUnlocked == nil &&
		p.ExtraSpinsUsed == nil &&
		p.MaxExtraSpins == nil &&
		p.SpinTickets == nil &&
		len(p.Balances) == 0
}

// Int returns a pointer to v, for building partials in code.
func Int(v int) *int { return &v }
