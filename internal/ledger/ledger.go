package ledger

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger is the process-lifetime cached mirror of the server's credit
// state. It is only ever advanced by authoritative messages (request
// replies and push events); no method performs speculative arithmetic.
// UIs wanting optimistic feedback must render it as a transient overlay,
// never write it here.
type Ledger struct {
	mu sync.RWMutex
	s  Snapshot
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		s: Snapshot{Balances: make(map[string]decimal.Decimal)},
	}
}

// ApplyFull replaces the whole ledger with the given snapshot. Used on the
// initial full-state fetch.
func (l *Ledger) ApplyFull(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.s = Snapshot{
		FreeSpinsUsed:      s.FreeSpinsUsed,
		MaxFreeSpins:       s.MaxFreeSpins,
		ExtraSpinsUnlocked: s.ExtraSpinsUnlocked,
		ExtraSpinsUsed:     s.ExtraSpinsUsed,
		MaxExtraSpins:      s.MaxExtraSpins,
		SpinTickets:        s.SpinTickets,
		Balances:           make(map[string]decimal.Decimal, len(s.Balances)),
	}
	for code, amt := range s.Balances {
		l.s.Balances[code] = amt
	}
	l.clampLocked()
}

// ApplyPartial merges only the fields present in the update, leaving all
// others untouched. A partial message is never treated as a full overwrite.
func (l *Ledger) ApplyPartial(p Partial) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.FreeSpinsUsed != nil {
		l.s.FreeSpinsUsed = *p.FreeSpinsUsed
	}
	if p.MaxFreeSpins != nil {
		l.s.MaxFreeSpins = *p.MaxFreeSpins
	}
	if p.ExtraSpinsUnlocked != nil {
		l.s.ExtraSpinsUnlocked = *p.ExtraSpinsUnlocked
	}
	if p.ExtraSpinsUsed != nil {
		l.s.ExtraSpinsUsed = *p.ExtraSpinsUsed
	}
	if p.MaxExtraSpins != nil {
		l.s.MaxExtraSpins = *p.MaxExtraSpins
	}
	if p.SpinTickets != nil {
		l.s.SpinTickets = *p.SpinTickets
	}
	for code, amt := range p.Balances {
		l.s.Balances[code] = amt
	}
	l.clampLocked()
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := l.s
	out.Balances = make(map[string]decimal.Decimal, len(l.s.Balances))
	for code, amt := range l.s.Balances {
		out.Balances[code] = amt
	}
	return out
}

// Balance returns the balance for a currency code, zero if unknown.
func (l *Ledger) Balance(code string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s.Balances[code]
}

// FreeSpinsRemaining returns max(0, maxFreeSpins - freeSpinsUsed).
func (l *Ledger) FreeSpinsRemaining() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s.FreeSpinsRemaining()
}

// ExtraSpinsRemaining returns the unlocked-minus-used extra spins, capped
// at maxExtraSpins.
func (l *Ledger) ExtraSpinsRemaining() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s.ExtraSpinsRemaining()
}

// SpinTickets returns the current ticket count.
func (l *Ledger) SpinTickets() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s.SpinTickets
}

// clampLocked enforces the ledger invariants: no field is ever negative
// and used counters never exceed their maxima. Caller must hold the write
// lock.
func (l *Ledger) clampLocked() {
	if l.s.MaxFreeSpins < 0 {
		l.s.MaxFreeSpins = 0
	}
	if l.s.FreeSpinsUsed < 0 {
		l.s.FreeSpinsUsed = 0
	}
	if l.s.FreeSpinsUsed > l.s.MaxFreeSpins {
		l.s.FreeSpinsUsed = l.s.MaxFreeSpins
	}
	if l.s.MaxExtraSpins < 0 {
		l.s.MaxExtraSpins = 0
	}
	if l.s.ExtraSpinsUnlocked < 0 {
		l.s.ExtraSpinsUnlocked = 0
	}
	if l.s.ExtraSpinsUsed < 0 {
		l.s.ExtraSpinsUsed = 0
	}
	if l.s.SpinTickets < 0 {
		l.s.SpinTickets = 0
	}
	for code, amt := range l.s.Balances {
		if amt.IsNegative() {
			l.s.Balances[code] = decimal.Zero
		}
	}
}
