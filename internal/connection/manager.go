package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/spinlabs/wheel-client/internal/metrics"
)

// Manager owns the lifecycle of the one persistent connection to the wheel
// backend. It is explicitly constructed at session start and torn down at
// session end; no other component opens a transport.
//
// State machine: Disconnected -> Connecting -> Connected -> Authenticating
// -> Authenticated. Any transport error or server-initiated close returns
// to Disconnected, after which the Manager redials on a fixed delay until
// stopped. Consumer subscriptions are NOT durable across reconnects; flows
// re-arm them when they observe the connected lifecycle event.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	// newClient is a seam for tests; production uses NewClient.
	newClient func(ClientConfig, *slog.Logger) Client

	events chan RawEvent

	mu      sync.RWMutex
	state   State
	client  Client
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a connection Manager. It does not dial.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		events:    make(chan RawEvent, cfg.BufferSize),
		state:     StateDisconnected,
	}
}

// Connect opens the connection. It resolves when the transport handshake
// completes; authentication continues in the background and surfaces as a
// lifecycle event. A failed initial dial is returned to the caller and
// does not start the reconnect loop.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrAlreadyClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	return m.dial(m.ctx)
}

// Disconnect tears the connection down deterministically. Idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	client := m.client
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if client != nil {
		client.Close()
	}
	m.setState(StateDisconnected)

	m.wg.Wait()
	close(m.events)

	m.logger.Info("connection manager stopped")
	return nil
}

// Send builds a frame and writes it to the connection. Per the client
// contract it fails silently: when not connected the frame is logged and
// dropped, never returned as an error to the caller.
func (m *Manager) Send(event string, payload any) {
	m.mu.RLock()
	client := m.client
	st := m.state
	m.mu.RUnlock()

	if client == nil || st == StateDisconnected || st == StateConnecting || st == StateErrored {
		m.logger.Debug("send skipped, not connected", "event", event, "state", st.String())
		return
	}

	frame := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			m.logger.Warn("send payload marshal failed", "event", event, "error", err)
			return
		}
		frame.Data = data
	}

	if err := client.Send(frame); err != nil {
		m.logger.Warn("send failed", "event", event, "error", err)
	}
}

// Events returns the ordered raw event stream consumed by the adapter.
func (m *Manager) Events() <-chan RawEvent {
	return m.events
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected is the synchronous, authoritative transport check used for
// guard decisions.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected || m.state == StateAuthenticating || m.state == StateAuthenticated
}

// dial opens one transport connection and starts its read loop.
func (m *Manager) dial(ctx context.Context) error {
	m.setState(StateConnecting)

	clientCfg := ClientConfig{
		URL:          m.cfg.URL,
		Token:        m.cfg.Token,
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}
	client := m.newClient(clientCfg, m.logger)

	if err := client.Connect(ctx); err != nil {
		m.setState(StateDisconnected)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()

	m.setState(StateConnected)
	m.emit(RawEvent{Kind: KindLifecycle, State: StateConnected, ReceivedAt: time.Now()})

	// Authenticate with the session token. auth_ok flips the state; the
	// watchdog forces a reconnect if the server never answers.
	m.setState(StateAuthenticating)
	authTimer := time.AfterFunc(m.cfg.AuthTimeout, func() {
		if m.State() == StateAuthenticating {
			m.logger.Warn("authentication timed out, reconnecting")
			m.handleDown(client, ErrAuthTimeout)
		}
	})
	m.sendAuth(client)

	m.wg.Add(1)
	go m.readLoop(client, authTimer)

	return nil
}

// sendAuth writes the auth frame directly on the given client, bypassing
// the state guard in Send (the manager is mid-handshake here).
func (m *Manager) sendAuth(client Client) {
	payload, _ := json.Marshal(authPayload{Token: m.cfg.Token})
	if err := client.Send(Frame{Event: EventAuth, Data: payload}); err != nil {
		m.logger.Warn("auth send failed", "error", err)
	}
}

// readLoop consumes one client's frames until the connection dies. The
// client has already decoded the wire envelope; only auth control frames
// are interpreted here.
func (m *Manager) readLoop(client Client, authTimer *time.Timer) {
	defer m.wg.Done()
	defer authTimer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-client.Errors():
			m.logger.Warn("connection error", "error", err)
			m.handleDown(client, err)
			return

		case frame, ok := <-client.Frames():
			if !ok {
				return
			}

			switch frame.Event {
			case EventAuthOK:
				authTimer.Stop()
				m.setState(StateAuthenticated)
				m.emit(RawEvent{Kind: KindLifecycle, State: StateAuthenticated, ReceivedAt: frame.ReceivedAt})

			case EventAuthError:
				authTimer.Stop()
				m.logger.Error("authentication rejected")
				m.setState(StateErrored)
				m.emit(RawEvent{Kind: KindLifecycle, State: StateErrored, Err: ErrAuthRejected, ReceivedAt: frame.ReceivedAt})
				m.handleDown(client, ErrAuthRejected)
				return

			default:
				metrics.PushFrames.WithLabelValues(frame.Event).Inc()
				m.emit(RawEvent{Kind: KindData, Event: frame.Event, Data: frame.Data, ReceivedAt: frame.ReceivedAt})
			}
		}
	}
}

// handleDown records an unexpected close and schedules the reconnect loop
// unless the manager was explicitly stopped. At most one caller wins the
// transition; the watchdog and the read loop may both report the same
// death.
func (m *Manager) handleDown(client Client, err error) {
	client.Close()

	m.mu.Lock()
	if m.closed || m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	// Add while still holding the lock so the reconnect goroutine is
	// registered before a concurrent Disconnect can reach wg.Wait.
	m.wg.Add(1)
	m.mu.Unlock()
	metrics.ConnectionState.Set(float64(StateDisconnected))

	m.emit(RawEvent{Kind: KindLifecycle, State: StateDisconnected, Err: err, ReceivedAt: time.Now()})

	go m.reconnectLoop()
}

// reconnectLoop redials on a fixed delay until it succeeds or the manager
// is stopped. Subscriptions are not restored here; dependent flows re-arm
// on the connected event.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.cfg.ReconnectDelay):
		}

		m.logger.Info("attempting reconnect")
		if err := m.dial(m.ctx); err != nil {
			m.logger.Warn("reconnect failed", "error", err)
			continue
		}

		metrics.Reconnects.Inc()
		m.logger.Info("reconnected")
		return
	}
}

// setState updates the lifecycle state and the state gauge.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	metrics.ConnectionState.Set(float64(s))
}

// emit forwards an event without blocking the read loop. The lock is held
// through the send: Disconnect sets closed under the same mutex before it
// closes the channel, so a send that observed closed == false cannot race
// the close.
func (m *Manager) emit(ev RawEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.events <- ev:
	default:
		metrics.DroppedEvents.WithLabelValues("connection").Inc()
		m.logger.Warn("event buffer full, dropping", "event", ev.Event)
	}
}
