package spin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spinlabs/wheel-client/internal/api"
	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/metrics"
	"github.com/spinlabs/wheel-client/internal/model"
)

// API is the slice of the REST client the orchestrator consumes.
type API interface {
	Spin(ctx context.Context, source model.SpinSource) (*api.SpinData, error)
	SpinWithTicket(ctx context.Context) (*api.SpinData, error)
	PurchaseTickets(ctx context.Context, quantity int) (*api.PurchaseData, error)
}

// Applier funnels authoritative reply counters into the ledger through the
// reconciler's serialization point.
type Applier interface {
	ApplyReply(p ledger.Partial)
}

// Orchestrator issues exactly-once mutating spin and ticket-purchase
// requests. Each domain is independently single-flight: at most one spin
// settlement and one purchase are ever outstanding.
type Orchestrator struct {
	cfg     Config
	api     API
	ledger  *ledger.Ledger
	applier Applier
	wheel   *model.WheelConfig
	logger  *slog.Logger

	mu               sync.Mutex
	spinState        State
	spinID           uuid.UUID
	purchaseInFlight bool

	results chan Resolution
	wg      sync.WaitGroup
}

// New creates an orchestrator over the session's wheel configuration
// snapshot.
func New(cfg Config, client API, led *ledger.Ledger, applier Applier, wheel *model.WheelConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:       cfg,
		api:       client,
		ledger:    led,
		applier:   applier,
		wheel:     wheel,
		logger:    logger,
		spinState: StateIdle,
		results:   make(chan Resolution, 8),
	}
}

// Results returns the spin state transitions for the UI layer.
func (o *Orchestrator) Results() <-chan Resolution {
	return o.results
}

// SpinState returns the current settlement state of the spin domain.
func (o *Orchestrator) SpinState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.spinState
}

// RequestSpin starts one spin settlement.
//
// Preconditions, checked locally before any network call: no spin may be
// Pending or AwaitingConfirmation (ErrSpinInFlight), and at least one
// credit must remain (ErrNoCreditsAvailable). The source is chosen by
// fixed priority Free > Extra > Ticket from the current ledger.
//
// The guard is released when the settlement reaches a terminal state; for
// a successful spin that is only after the settle delay, so a second spin
// cannot start mid-animation.
func (o *Orchestrator) RequestSpin(ctx context.Context) (uuid.UUID, error) {
	o.mu.Lock()
	if o.spinState == StatePending || o.spinState == StateAwaitingConfirmation {
		o.mu.Unlock()
		return uuid.Nil, ErrSpinInFlight
	}

	source, ok := SelectSource(o.ledger.Snapshot())
	if !ok {
		o.mu.Unlock()
		return uuid.Nil, ErrNoCreditsAvailable
	}

	id := uuid.New()
	o.spinState = StatePending
	o.spinID = id
	o.mu.Unlock()

	o.logger.Info("spin requested", "local_id", id, "source", source)

	o.wg.Add(1)
	go o.resolve(ctx, id, source)

	return id, nil
}

// RequestPurchase buys spin tickets. It is its own single-flight domain
// and blocks until the reply lands. On success the server-absolute ticket
// total and remaining balance are applied to the ledger.
func (o *Orchestrator) RequestPurchase(ctx context.Context, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	o.mu.Lock()
	if o.purchaseInFlight {
		o.mu.Unlock()
		return ErrPurchaseInFlight
	}
	o.purchaseInFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.purchaseInFlight = false
		o.mu.Unlock()
	}()

	data, err := o.api.PurchaseTickets(ctx, quantity)
	if err != nil {
		metrics.Purchases.WithLabelValues("failed").Inc()
		o.logger.Warn("purchase rejected", "quantity", quantity, "error", err)
		return err
	}

	o.applier.ApplyReply(data.Counters)
	metrics.Purchases.WithLabelValues("succeeded").Inc()
	o.logger.Info("purchase settled", "quantity", quantity)
	return nil
}

// Wait blocks until in-flight settlements have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// resolve runs one spin settlement to its terminal state.
func (o *Orchestrator) resolve(ctx context.Context, id uuid.UUID, source model.SpinSource) {
	defer o.wg.Done()
	started := time.Now()

	var data *api.SpinData
	var err error
	if source == model.SourceTicket {
		data, err = o.api.SpinWithTicket(ctx)
	} else {
		data, err = o.api.Spin(ctx, source)
	}

	if err != nil {
		// Server state is unchanged on failure: no ledger mutation, guard
		// released immediately.
		o.setSpinState(StateFailed)
		metrics.Spins.WithLabelValues(string(source), "failed").Inc()
		o.emit(Resolution{LocalID: id, Source: source, State: StateFailed, Err: err})
		return
	}

	o.applier.ApplyReply(data.Counters)

	angle, ok := TargetAngle(o.wheel, data.Result.PrizeID, o.cfg.FullRotations)
	if !ok {
		// The server settled a prize the cached wheel does not carry; the
		// credit outcome still stands, only the pointer lands at zero.
		o.logger.Warn("prize missing from wheel config", "prize_id", data.Result.PrizeID)
	}
	outcome := data.Result

	o.setSpinState(StateAwaitingConfirmation)
	o.emit(Resolution{
		LocalID:     id,
		Source:      source,
		State:       StateAwaitingConfirmation,
		Outcome:     &outcome,
		TargetAngle: angle,
	})

	// Hold the guard for the animation window.
	timer := time.NewTimer(o.cfg.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		// Flow torn down mid-animation: release the guard so a later spin
		// is not permanently blocked.
		o.setSpinState(StateIdle)
		return
	case <-timer.C:
	}

	o.setSpinState(StateSucceeded)
	metrics.Spins.WithLabelValues(string(source), "succeeded").Inc()
	metrics.SettleDuration.Observe(time.Since(started).Seconds())
	o.emit(Resolution{
		LocalID:     id,
		Source:      source,
		State:       StateSucceeded,
		Outcome:     &outcome,
		TargetAngle: angle,
	})
}

func (o *Orchestrator) setSpinState(s State) {
	o.mu.Lock()
	o.spinState = s
	o.mu.Unlock()
}

func (o *Orchestrator) emit(r Resolution) {
	select {
	case o.results <- r:
	default:
		metrics.DroppedEvents.WithLabelValues("spin_results").Inc()
		o.logger.Warn("results buffer full, dropping resolution", "local_id", r.LocalID, "state", r.State)
	}
}
