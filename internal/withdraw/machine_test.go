package withdraw

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spinlabs/wheel-client/internal/api"
	"github.com/spinlabs/wheel-client/internal/stream"
)

type fakeWithdrawAPI struct {
	mu      sync.Mutex
	calls   int
	lastReq api.WithdrawalRequest
	data    *api.WithdrawalData
	err     error
}

func (f *fakeWithdrawAPI) SubmitWithdrawal(ctx context.Context, req api.WithdrawalRequest) (*api.WithdrawalData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	return f.data, f.err
}

func (f *fakeWithdrawAPI) request() api.WithdrawalRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

type fakeConn struct {
	mu        sync.Mutex
	connected bool
	sent      []string
}

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, event)
}

func (c *fakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) sendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type harness struct {
	api       *fakeWithdrawAPI
	conn      *fakeConn
	statuses  chan stream.WithdrawalStatus
	lifecycle chan stream.Event
	machine   *Machine
}

func newHarness(cfg Config, connected bool, apiErr error) *harness {
	h := &harness{
		api:       &fakeWithdrawAPI{data: &api.WithdrawalData{Status: "processing"}, err: apiErr},
		conn:      &fakeConn{connected: connected},
		statuses:  make(chan stream.WithdrawalStatus, 4),
		lifecycle: make(chan stream.Event, 4),
	}
	h.machine = New(cfg, h.api, h.conn, h.statuses, h.lifecycle, nil)
	return h
}

func testRequest() Request {
	return Request{Currency: "usdt", Amount: decimal.NewFromInt(10), Address: "0xabc"}
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func TestMachine_FlowGuards(t *testing.T) {
	h := newHarness(DefaultConfig(), true, nil)
	m := h.machine

	if err := m.Cancel(); !errors.Is(err, ErrNotConfirming) {
		t.Errorf("Cancel() from idle error = %v, want ErrNotConfirming", err)
	}
	if err := m.Submit(context.Background()); !errors.Is(err, ErrNotConfirming) {
		t.Errorf("Submit() from idle error = %v, want ErrNotConfirming", err)
	}
	if err := m.Acknowledge(); !errors.Is(err, ErrNotTerminal) {
		t.Errorf("Acknowledge() from idle error = %v, want ErrNotTerminal", err)
	}

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if got := m.State(); got != StateConfirming {
		t.Errorf("State() = %q, want %q", got, StateConfirming)
	}
	if err := m.Begin(testRequest()); !errors.Is(err, ErrNotIdle) {
		t.Errorf("second Begin() error = %v, want ErrNotIdle", err)
	}

	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := m.State(); got != StateIdle {
		t.Errorf("State() after cancel = %q, want %q", got, StateIdle)
	}
}

func TestMachine_StatusPushResolvesSuccess(t *testing.T) {
	h := newHarness(DefaultConfig(), true, nil)
	m := h.machine
	ctx := context.Background()

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(ctx); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	id := m.LocalID()
	if id == uuid.Nil {
		t.Fatal("LocalID() = Nil after submit")
	}

	// A stale status for an earlier request is ignored.
	h.statuses <- stream.WithdrawalStatus{LocalID: uuid.NewString(), Outcome: stream.WithdrawalFailed}
	h.statuses <- stream.WithdrawalStatus{LocalID: id.String(), Outcome: stream.WithdrawalSucceeded, Reason: "done"}

	r := waitResult(t, m.Results())
	if r.LocalID != id {
		t.Errorf("result LocalID = %v, want %v", r.LocalID, id)
	}
	if r.State != StateSucceeded {
		t.Errorf("result state = %q, want %q", r.State, StateSucceeded)
	}
	if r.Reason != "done" {
		t.Errorf("result reason = %q, want %q", r.Reason, "done")
	}
	m.Wait()

	if got := h.api.request().LocalID; got != id.String() {
		t.Errorf("submitted local_id = %q, want %q", got, id.String())
	}

	if err := m.Acknowledge(); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}
	if got := m.State(); got != StateIdle {
		t.Errorf("State() after acknowledge = %q, want %q", got, StateIdle)
	}
	if got := m.LocalID(); got != uuid.Nil {
		t.Errorf("LocalID() after acknowledge = %v, want Nil", got)
	}
}

func TestMachine_ReplyErrorResolvesFailed(t *testing.T) {
	apiErr := errors.New("limit exceeded")
	h := newHarness(DefaultConfig(), true, apiErr)
	m := h.machine

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	r := waitResult(t, m.Results())
	if r.State != StateFailed {
		t.Errorf("result state = %q, want %q", r.State, StateFailed)
	}
	if !errors.Is(r.Err, apiErr) {
		t.Errorf("result err = %v, want %v", r.Err, apiErr)
	}
	m.Wait()
}

func TestMachine_FallbackWhenNeverConnected(t *testing.T) {
	cfg := Config{FallbackDelay: 10 * time.Millisecond, MaxWait: 2 * time.Second}
	h := newHarness(cfg, false, nil)
	m := h.machine

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// No push channel: the successful reply becomes authoritative after
	// the fallback delay.
	r := waitResult(t, m.Results())
	if r.State != StateSucceeded {
		t.Errorf("result state = %q, want %q", r.State, StateSucceeded)
	}
	m.Wait()
}

func TestMachine_ConnectionUpDisarmsFallbackAndRearms(t *testing.T) {
	cfg := Config{FallbackDelay: 50 * time.Millisecond, MaxWait: 2 * time.Second}
	h := newHarness(cfg, false, nil)
	m := h.machine

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	id := m.LocalID()

	// The connection comes up before the fallback fires.
	h.lifecycle <- stream.ConnectionUp{At: time.Now()}

	// Wait past the fallback delay; the flow must still be Processing.
	time.Sleep(100 * time.Millisecond)
	if got := m.State(); got != StateProcessing {
		t.Fatalf("State() = %q, want %q (fallback should be disarmed)", got, StateProcessing)
	}

	h.statuses <- stream.WithdrawalStatus{LocalID: id.String(), Outcome: stream.WithdrawalFailed, Reason: "rejected"}
	r := waitResult(t, m.Results())
	if r.State != StateFailed {
		t.Errorf("result state = %q, want %q", r.State, StateFailed)
	}
	if r.Reason != "rejected" {
		t.Errorf("result reason = %q, want %q", r.Reason, "rejected")
	}
	m.Wait()

	// One subscribe at submit plus one re-arm on connection up.
	if got := h.conn.sendCount(); got != 2 {
		t.Errorf("subscribe sends = %d, want 2", got)
	}
}

func TestMachine_MaxWaitResolvesFailed(t *testing.T) {
	cfg := Config{FallbackDelay: time.Hour, MaxWait: 20 * time.Millisecond}
	h := newHarness(cfg, true, nil)
	m := h.machine

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	r := waitResult(t, m.Results())
	if r.State != StateFailed {
		t.Errorf("result state = %q, want %q", r.State, StateFailed)
	}
	if !errors.Is(r.Err, ErrTimeout) {
		t.Errorf("result err = %v, want ErrTimeout", r.Err)
	}
	m.Wait()
}

func TestMachine_TerminalStateAbsorbsConflictingStatus(t *testing.T) {
	h := newHarness(DefaultConfig(), true, nil)
	m := h.machine

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	id := m.LocalID()

	h.statuses <- stream.WithdrawalStatus{LocalID: id.String(), Outcome: stream.WithdrawalSucceeded}
	r := waitResult(t, m.Results())
	if r.State != StateSucceeded {
		t.Fatalf("result state = %q, want %q", r.State, StateSucceeded)
	}
	m.Wait()

	// A contradictory push for the same id after resolution changes
	// nothing: terminal states are absorbing.
	h.statuses <- stream.WithdrawalStatus{LocalID: id.String(), Outcome: stream.WithdrawalFailed, Reason: "late reversal"}
	time.Sleep(50 * time.Millisecond)

	if got := m.State(); got != StateSucceeded {
		t.Errorf("State() after conflicting push = %q, want %q", got, StateSucceeded)
	}
	select {
	case extra := <-m.Results():
		t.Errorf("unexpected second result %v", extra)
	default:
	}
}

func TestMachine_StaleConnectionUpDoesNotDisarmFallback(t *testing.T) {
	cfg := Config{FallbackDelay: 20 * time.Millisecond, MaxWait: 2 * time.Second}
	h := newHarness(cfg, false, nil)
	m := h.machine

	// Backlog from a connection that lived and died before this flow.
	h.lifecycle <- stream.ConnectionUp{At: time.Now().Add(-time.Minute)}
	h.lifecycle <- stream.ConnectionUp{At: time.Now().Add(-30 * time.Second)}

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// The stale events must not count as connectivity; the reply still
	// resolves through the fallback path.
	r := waitResult(t, m.Results())
	if r.State != StateSucceeded {
		t.Errorf("result state = %q, want %q", r.State, StateSucceeded)
	}
	m.Wait()

	// Only the subscribe at submit; stale events trigger no re-arm.
	if got := h.conn.sendCount(); got != 1 {
		t.Errorf("subscribe sends = %d, want 1", got)
	}
}

func TestMachine_ConnectionDropDoesNotFailFlow(t *testing.T) {
	h := newHarness(DefaultConfig(), true, nil)
	m := h.machine

	if err := m.Begin(testRequest()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	id := m.LocalID()

	h.lifecycle <- stream.ConnectionDown{At: time.Now(), Err: errors.New("eof")}
	h.lifecycle <- stream.ConnectionUp{At: time.Now()}

	// The flow survives the drop and settles on the post-reconnect push.
	h.statuses <- stream.WithdrawalStatus{LocalID: id.String(), Outcome: stream.WithdrawalSucceeded}
	r := waitResult(t, m.Results())
	if r.State != StateSucceeded {
		t.Errorf("result state = %q, want %q", r.State, StateSucceeded)
	}
	m.Wait()
}
