package spin

import (
	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/model"
)

// SelectSource picks the credit a spin should consume, in fixed priority
// order Free > Extra > Ticket. Returns false when every credit is
// exhausted.
func SelectSource(s ledger.Snapshot) (model.SpinSource, bool) {
	switch {
	case s.FreeSpinsRemaining() > 0:
		return model.SourceFree, true
	case s.ExtraSpinsRemaining() > 0:
		return model.SourceExtra, true
	case s.SpinTickets > 0:
		return model.SourceTicket, true
	default:
		return "", false
	}
}

// TargetAngle maps a prize id onto the rotation target for the displayed
// wheel: the segment center measured clockwise, plus a fixed number of
// full turns for presentation. Duplicated prize ids resolve to the first
// match in display order. Returns false when the id is not on the wheel.
func TargetAngle(w *model.WheelConfig, prizeID string, fullRotations int) (float64, bool) {
	if w == nil || len(w.Prizes) == 0 {
		return 0, false
	}
	idx := w.PrizeIndex(prizeID)
	if idx < 0 {
		return 0, false
	}

	segment := 360.0 / float64(len(w.Prizes))
	angle := 360.0 - (float64(idx)*segment + segment/2)
	return angle + 360.0*float64(fullRotations), true
}
