package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/metrics"
	"github.com/spinlabs/wheel-client/internal/stream"
)

// Reconciler is the single consumer of the event stream. It merges ledger
// updates from both channels and fans settlement-relevant events out to
// the flows that need them.
//
// Rule: field-level last-write-wins by arrival order, never by request
// correlation; the wire carries no sequence numbers or versions. Every
// write (push event or request reply) funnels through apply(), so "arrival
// order" is well-defined in-process. This is adequate because each field
// is effectively single-writer; a genuinely concurrent update to the same
// field from both channels has no resolution beyond whichever message
// lands here last.
type Reconciler struct {
	ledger *ledger.Ledger
	events <-chan stream.Event
	logger *slog.Logger

	// applyMu serializes ledger writes from the stream loop and ApplyReply.
	applyMu sync.Mutex

	withdrawals chan stream.WithdrawalStatus
	lifecycle   chan stream.Event
	outcomes    chan stream.SpinOutcomePush

	wg sync.WaitGroup
}

// New creates a reconciler over the adapter's event sequence.
func New(led *ledger.Ledger, events <-chan stream.Event, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		ledger:      led,
		events:      events,
		logger:      logger,
		withdrawals: make(chan stream.WithdrawalStatus, 16),
		lifecycle:   make(chan stream.Event, 16),
		outcomes:    make(chan stream.SpinOutcomePush, 16),
	}
}

// Start begins consuming the stream. The fan-out channels close when the
// stream ends or ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

// Wait blocks until the stream loop has exited.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// ApplyReply merges an authoritative request-reply update into the ledger.
// Replies and push events share one serialization point so the
// last-write-wins order is the in-process arrival order.
func (r *Reconciler) ApplyReply(p ledger.Partial) {
	if p.IsZero() {
		return
	}
	r.apply(p)
}

// Withdrawals returns withdrawal-status pushes for the settlement machine.
func (r *Reconciler) Withdrawals() <-chan stream.WithdrawalStatus {
	return r.withdrawals
}

// Lifecycle returns connection lifecycle events (up/down/authenticated)
// for flows that must re-arm subscriptions after reconnects.
func (r *Reconciler) Lifecycle() <-chan stream.Event {
	return r.lifecycle
}

// Outcomes returns spin outcomes delivered over the push channel.
func (r *Reconciler) Outcomes() <-chan stream.SpinOutcomePush {
	return r.outcomes
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.withdrawals)
	defer close(r.lifecycle)
	defer close(r.outcomes)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			r.dispatch(ev)
		}
	}
}

// dispatch handles one event in arrival order.
func (r *Reconciler) dispatch(ev stream.Event) {
	switch v := ev.(type) {
	case stream.CreditUpdate:
		r.apply(v.Fields)

	case stream.BalanceUpdate:
		r.apply(ledger.Partial{Balances: v.Balances})

	case stream.WithdrawalStatus:
		r.forward("withdrawals", func() bool {
			select {
			case r.withdrawals <- v:
				return true
			default:
				return false
			}
		})

	case stream.ConnectionUp, stream.ConnectionDown, stream.Authenticated:
		r.forwardLifecycle(ev)

	case stream.SpinOutcomePush:
		r.forward("outcomes", func() bool {
			select {
			case r.outcomes <- v:
				return true
			default:
				return false
			}
		})
	}
}

func (r *Reconciler) apply(p ledger.Partial) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	r.ledger.ApplyPartial(p)
}

// forwardLifecycle keeps the newest transitions. Lifecycle events describe
// the connection as it is now; when no flow is consuming them the buffer
// evicts its oldest entry instead of rejecting the new one, so a consumer
// that attaches later never reads a stale backlog ahead of the current
// state.
func (r *Reconciler) forwardLifecycle(ev stream.Event) {
	select {
	case r.lifecycle <- ev:
		return
	default:
	}

	// Evict the oldest entry. The stream loop is the only sender, so the
	// freed slot cannot be taken before the retry below.
	select {
	case <-r.lifecycle:
		metrics.DroppedEvents.WithLabelValues("lifecycle").Inc()
		r.logger.Debug("lifecycle backlog full, evicting oldest event")
	default:
	}

	select {
	case r.lifecycle <- ev:
	default:
	}
}

// forward sends without blocking the stream loop; a full consumer drops
// the event with a warning rather than stalling ledger reconciliation.
func (r *Reconciler) forward(stage string, send func() bool) {
	if !send() {
		metrics.DroppedEvents.WithLabelValues(stage).Inc()
		r.logger.Warn("consumer backpressure, dropping event", "stage", stage)
	}
}
