package model

import "github.com/shopspring/decimal"

// SpinSource identifies which credit a spin consumes.
// Selection priority is fixed: Free > Extra > Ticket.
type SpinSource string

const (
	SourceFree   SpinSource = "free"
	SourceExtra  SpinSource = "extra"
	SourceTicket SpinSource = "ticket"
)

// Prize is one wheel segment from the configuration snapshot.
// Weight is server-side information only; the client never infers
// probabilities from it.
type Prize struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	Weight       int             `json:"weight"`
}

// SpinOutcome is the authoritative result of a spin. It is produced by the
// remote authority and immutable once received.
type SpinOutcome struct {
	PrizeID      string          `json:"prize_id"`
	Label        string          `json:"label"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
}

// WheelConfig is the once-per-session configuration snapshot: the ordered
// prize list the wheel displays, credit maxima and the ticket price.
type WheelConfig struct {
	Prizes        []Prize         `json:"prizes"`
	MaxFreeSpins  int             `json:"max_free_spins"`
	MaxExtraSpins int             `json:"max_extra_spins"`
	TicketPrice   decimal.Decimal `json:"ticket_price"`
}

// PrizeIndex returns the index of the first prize with the given id in the
// displayed order, or -1. Duplicated ids resolve to the first match.
func (w *WheelConfig) PrizeIndex(prizeID string) int {
	for i, p := range w.Prizes {
		if p.ID == prizeID {
			return i
		}
	}
	return -1
}
