package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/spinlabs/wheel-client/internal/connection"
	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/model"
)

// Adapter turns the connection manager's raw feed into one ordered
// sequence of typed events. Exactly one consumer reads Events() per
// connection. Close tears down deterministically: the pump goroutines
// exit, the output channel closes, and no event is delivered afterwards.
type Adapter struct {
	logger *slog.Logger
	in     <-chan connection.RawEvent

	queue *Queue[Event]
	out   chan Event

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu          sync.Mutex
	decoded     int64
	decodeFails int64
}

// NewAdapter creates an adapter over the manager's raw event feed.
func NewAdapter(in <-chan connection.RawEvent, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		logger: logger,
		in:     in,
		queue:  NewQueue[Event](256),
		out:    make(chan Event),
	}
}

// Start begins decoding and pumping events.
func (a *Adapter) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(2)
	go a.decodeLoop()
	go a.pumpLoop()
}

// Events returns the single ordered event sequence. The channel closes
// when the adapter is torn down or the underlying feed ends.
func (a *Adapter) Events() <-chan Event {
	return a.out
}

// Close tears the adapter down. Idempotent; returns after both loops have
// exited, so no event is delivered past this call.
func (a *Adapter) Close() {
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.queue.Close()
		a.wg.Wait()
	})
}

// Stats returns decode counters.
func (a *Adapter) Stats() (decoded, failed int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.decoded, a.decodeFails
}

// decodeLoop reads raw events, decodes once, and queues typed events in
// receipt order.
func (a *Adapter) decodeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case raw, ok := <-a.in:
			if !ok {
				a.queue.Close()
				return
			}
			ev, ok := a.decode(raw)
			if !ok {
				continue
			}
			a.queue.Push(ev)

			a.mu.Lock()
			a.decoded++
			a.mu.Unlock()
		}
	}
}

// pumpLoop drains the queue into the consumer channel.
func (a *Adapter) pumpLoop() {
	defer a.wg.Done()
	defer close(a.out)

	for {
		ev, ok := a.queue.Pop()
		if !ok {
			return
		}
		select {
		case a.out <- ev:
		case <-a.ctx.Done():
			return
		}
	}
}

// decode maps a raw event onto the closed Event set. Unknown or malformed
// frames are logged and skipped.
func (a *Adapter) decode(raw connection.RawEvent) (Event, bool) {
	if raw.Kind == connection.KindLifecycle {
		switch raw.State {
		case connection.StateConnected:
			return ConnectionUp{At: raw.ReceivedAt}, true
		case connection.StateAuthenticated:
			return Authenticated{At: raw.ReceivedAt}, true
		case connection.StateDisconnected, connection.StateErrored:
			return ConnectionDown{At: raw.ReceivedAt, Err: raw.Err}, true
		default:
			return nil, false
		}
	}

	switch raw.Event {
	case connection.EventCreditUpdate:
		var fields ledger.Partial
		if err := json.Unmarshal(raw.Data, &fields); err != nil {
			return a.decodeFail(raw.Event, err)
		}
		return CreditUpdate{At: raw.ReceivedAt, Fields: fields}, true

	case connection.EventBalanceUpdate:
		var wire struct {
			Balances map[string]decimal.Decimal `json:"balances"`
		}
		if err := json.Unmarshal(raw.Data, &wire); err != nil {
			return a.decodeFail(raw.Event, err)
		}
		return BalanceUpdate{At: raw.ReceivedAt, Balances: wire.Balances}, true

	case connection.EventSpinResult:
		var outcome model.SpinOutcome
		if err := json.Unmarshal(raw.Data, &outcome); err != nil {
			return a.decodeFail(raw.Event, err)
		}
		return SpinOutcomePush{At: raw.ReceivedAt, Outcome: outcome}, true

	case connection.EventWithdrawalStatus:
		var wire struct {
			LocalID string `json:"local_id"`
			Status  string `json:"status"`
			Reason  string `json:"reason"`
		}
		if err := json.Unmarshal(raw.Data, &wire); err != nil {
			return a.decodeFail(raw.Event, err)
		}
		outcome := WithdrawalOutcome(wire.Status)
		if outcome != WithdrawalSucceeded && outcome != WithdrawalFailed {
			a.logger.Warn("unknown withdrawal status", "status", wire.Status)
			return nil, false
		}
		return WithdrawalStatus{
			At:      raw.ReceivedAt,
			LocalID: wire.LocalID,
			Outcome: outcome,
			Reason:  wire.Reason,
		}, true

	default:
		a.logger.Debug("skipping event", "event", raw.Event)
		return nil, false
	}
}

func (a *Adapter) decodeFail(event string, err error) (Event, bool) {
	a.logger.Warn("failed to decode event", "event", event, "error", err)
	a.mu.Lock()
	a.decodeFails++
	a.mu.Unlock()
	return nil, false
}
