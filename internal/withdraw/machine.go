package withdraw

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spinlabs/wheel-client/internal/api"
	"github.com/spinlabs/wheel-client/internal/connection"
	"github.com/spinlabs/wheel-client/internal/metrics"
	"github.com/spinlabs/wheel-client/internal/stream"
)

// API is the slice of the REST client the machine consumes.
type API interface {
	SubmitWithdrawal(ctx context.Context, req api.WithdrawalRequest) (*api.WithdrawalData, error)
}

// Conn is the slice of the connection manager the machine consumes: it
// only subscribes and checks connectivity, never owns the transport.
type Conn interface {
	Send(event string, payload any)
	IsConnected() bool
}

// Machine drives one withdrawal at a time through
// Idle -> Confirming -> Submitting -> Processing -> {Succeeded | Failed}.
//
// While Processing, three independent signals can resolve it: a matching
// withdrawal-status push, the request's own reply indicating failure, or
// (only when the connection was never established) the fallback delay that
// promotes the reply to authoritative. The first terminal signal wins;
// anything arriving later for the same local id is ignored. A connection
// drop does not fail the flow; the manager reconnects and the machine
// re-arms its subscription on the connected event.
type Machine struct {
	cfg       Config
	api       API
	conn      Conn
	statuses  <-chan stream.WithdrawalStatus
	lifecycle <-chan stream.Event
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	localID uuid.UUID
	req     Request

	results chan Result
	wg      sync.WaitGroup
}

// New creates a withdrawal machine fed by the reconciler's fan-out
// channels.
func New(cfg Config, client API, conn Conn, statuses <-chan stream.WithdrawalStatus, lifecycle <-chan stream.Event, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Machine{
		cfg:       cfg,
		api:       client,
		conn:      conn,
		statuses:  statuses,
		lifecycle: lifecycle,
		logger:    logger,
		state:     StateIdle,
		results:   make(chan Result, 4),
	}
}

// State returns the current flow state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LocalID returns the id of the current request, uuid.Nil when idle.
func (m *Machine) LocalID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localID
}

// Results returns terminal outcomes for the UI layer.
func (m *Machine) Results() <-chan Result {
	return m.results
}

// Begin moves Idle -> Confirming with the reviewed form. Purely local.
func (m *Machine) Begin(req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return ErrNotIdle
	}
	m.state = StateConfirming
	m.req = req
	return nil
}

// Cancel abandons a Confirming flow before submission.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConfirming {
		return ErrNotConfirming
	}
	m.state = StateIdle
	m.req = Request{}
	return nil
}

// Submit sends the withdrawal request and enters Processing. The terminal
// outcome arrives on Results.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateConfirming {
		m.mu.Unlock()
		return ErrNotConfirming
	}
	m.state = StateSubmitting
	m.localID = uuid.New()
	id := m.localID
	req := m.req
	m.mu.Unlock()

	m.logger.Info("withdrawal submitted", "local_id", id, "currency", req.Currency, "amount", req.Amount)

	// Capture the submission time here, not in the goroutine, so lifecycle
	// events observed after Submit returns are never mistaken for backlog.
	started := time.Now()

	m.wg.Add(1)
	go m.run(ctx, id, req, started)
	return nil
}

// Acknowledge returns a terminal flow to Idle and clears the form fields
// that produced the request. Must be called by the UI after showing the
// result view.
func (m *Machine) Acknowledge() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.terminal() {
		return ErrNotTerminal
	}
	m.state = StateIdle
	m.localID = uuid.Nil
	m.req = Request{}
	return nil
}

// Wait blocks until the in-flight settlement goroutine has finished.
func (m *Machine) Wait() {
	m.wg.Wait()
}

type replyOutcome struct {
	data *api.WithdrawalData
	err  error
}

// run drives one submission to its terminal state. Lifecycle events older
// than started are backlog from before this submission and are ignored.
func (m *Machine) run(ctx context.Context, id uuid.UUID, req Request, started time.Time) {
	defer m.wg.Done()

	// Entering Processing (re)subscribes on the current connection.
	// Subscriptions are not durable across reconnects, so ConnectionUp
	// below re-arms.
	m.conn.Send(connection.EventSubscribe, subscribePayload{Channel: "withdrawals"})
	m.setState(StateProcessing)

	everConnected := m.conn.IsConnected()

	replyCh := make(chan replyOutcome, 1)
	go func() {
		data, err := m.api.SubmitWithdrawal(ctx, api.WithdrawalRequest{
			LocalID:  id.String(),
			Currency: req.Currency,
			Amount:   req.Amount,
			Address:  req.Address,
		})
		replyCh <- replyOutcome{data: data, err: err}
	}()

	maxWait := time.NewTimer(m.cfg.MaxWait)
	defer maxWait.Stop()

	var fallbackC <-chan time.Time
	statuses := m.statuses
	lifecycle := m.lifecycle

	for {
		select {
		case <-ctx.Done():
			// Flow torn down: release the guard so a later withdrawal is
			// not blocked.
			m.setState(StateIdle)
			return

		case r := <-replyCh:
			replyCh = nil
			if r.err != nil {
				// Signal (b): the request's own reply reports failure.
				m.terminal(id, StateFailed, r.err, "")
				return
			}
			if !everConnected && !m.conn.IsConnected() {
				// No push channel: after the fallback delay the reply is
				// authoritative.
				fallbackC = time.After(m.cfg.FallbackDelay)
			}

		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			if st.LocalID != id.String() {
				// Stale status for an earlier request; terminal states are
				// absorbing per local id.
				continue
			}
			if st.Outcome == stream.WithdrawalSucceeded {
				m.terminal(id, StateSucceeded, nil, st.Reason)
			} else {
				m.terminal(id, StateFailed, nil, st.Reason)
			}
			return

		case ev, ok := <-lifecycle:
			if !ok {
				lifecycle = nil
				continue
			}
			switch v := ev.(type) {
			case stream.ConnectionUp:
				if v.At.Before(started) {
					// A backlog event from before this submission; it says
					// nothing about the connection this flow can use.
					continue
				}
				everConnected = true
				fallbackC = nil
				// Re-arm the subscription on the fresh connection.
				m.conn.Send(connection.EventSubscribe, subscribePayload{Channel: "withdrawals"})
			case stream.ConnectionDown:
				// Not a failure; the manager reconnects on its own.
				m.logger.Debug("connection lost while processing withdrawal", "local_id", id)
			}

		case <-fallbackC:
			// Only reachable after a successful reply with no connection.
			m.terminal(id, StateSucceeded, nil, "")
			return

		case <-maxWait.C:
			m.terminal(id, StateFailed, ErrTimeout, "")
			return
		}
	}
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Machine) terminal(id uuid.UUID, s State, err error, reason string) {
	m.setState(s)
	metrics.Withdrawals.WithLabelValues(string(s)).Inc()
	m.logger.Info("withdrawal settled", "local_id", id, "state", s, "reason", reason, "error", err)

	select {
	case m.results <- Result{LocalID: id, State: s, Reason: reason, Err: err}:
	default:
		metrics.DroppedEvents.WithLabelValues("withdraw_results").Inc()
		m.logger.Warn("results buffer full, dropping result", "local_id", id)
	}
}
