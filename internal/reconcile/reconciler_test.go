package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/stream"
)

func startReconciler(t *testing.T) (*Reconciler, *ledger.Ledger, chan stream.Event) {
	t.Helper()
	led := ledger.New()
	led.ApplyFull(ledger.Snapshot{MaxFreeSpins: 3})

	events := make(chan stream.Event, 16)
	r := New(led, events, nil)
	r.Start(context.Background())
	return r, led, events
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReconciler_CreditUpdateApplies(t *testing.T) {
	r, led, events := startReconciler(t)

	events <- stream.CreditUpdate{Fields: ledger.Partial{FreeSpinsUsed: ledger.Int(2)}}

	waitFor(t, func() bool { return led.FreeSpinsRemaining() == 1 })

	close(events)
	r.Wait()
}

func TestReconciler_BalanceUpdateApplies(t *testing.T) {
	r, led, events := startReconciler(t)

	events <- stream.BalanceUpdate{Balances: map[string]decimal.Decimal{
		"usdt": decimal.RequireFromString("3.25"),
	}}

	waitFor(t, func() bool { return led.Balance("usdt").Equal(decimal.RequireFromString("3.25")) })

	close(events)
	r.Wait()
}

func TestReconciler_ArrivalOrderLastWriteWins(t *testing.T) {
	r, led, events := startReconciler(t)

	// Push lands first, then a request reply for the same field. The later
	// arrival wins regardless of which channel carried it.
	events <- stream.CreditUpdate{Fields: ledger.Partial{FreeSpinsUsed: ledger.Int(2)}}
	waitFor(t, func() bool { return led.FreeSpinsRemaining() == 1 })

	r.ApplyReply(ledger.Partial{FreeSpinsUsed: ledger.Int(1)})

	if got := led.FreeSpinsRemaining(); got != 2 {
		t.Errorf("FreeSpinsRemaining() = %d, want 2 (reply arrived last)", got)
	}

	close(events)
	r.Wait()
}

func TestReconciler_ApplyReplyIgnoresEmptyPartial(t *testing.T) {
	r, led, events := startReconciler(t)

	before := led.Snapshot()
	r.ApplyReply(ledger.Partial{})
	after := led.Snapshot()

	if before.FreeSpinsRemaining() != after.FreeSpinsRemaining() {
		t.Error("empty partial changed the ledger")
	}

	close(events)
	r.Wait()
}

func TestReconciler_ForwardsWithdrawalStatuses(t *testing.T) {
	r, _, events := startReconciler(t)

	events <- stream.WithdrawalStatus{LocalID: "w-1", Outcome: stream.WithdrawalSucceeded}

	select {
	case st := <-r.Withdrawals():
		if st.LocalID != "w-1" || st.Outcome != stream.WithdrawalSucceeded {
			t.Errorf("forwarded status = %+v, want w-1 succeeded", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for withdrawal status")
	}

	close(events)
	r.Wait()
}

func TestReconciler_ForwardsLifecycleAndOutcomes(t *testing.T) {
	r, _, events := startReconciler(t)

	events <- stream.ConnectionUp{At: time.Now()}
	events <- stream.SpinOutcomePush{}

	select {
	case ev := <-r.Lifecycle():
		if _, ok := ev.(stream.ConnectionUp); !ok {
			t.Errorf("lifecycle event = %T, want stream.ConnectionUp", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lifecycle event")
	}

	select {
	case <-r.Outcomes():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for spin outcome")
	}

	close(events)
	r.Wait()
}

func TestReconciler_LifecycleBacklogKeepsNewest(t *testing.T) {
	r, _, events := startReconciler(t)

	// Overflow the lifecycle buffer with nobody consuming; the oldest
	// entries are evicted so the newest transitions survive.
	old := time.Now().Add(-time.Hour)
	for i := 0; i < 20; i++ {
		events <- stream.ConnectionUp{At: old.Add(time.Duration(i) * time.Second)}
	}
	newest := time.Now()
	events <- stream.ConnectionDown{At: newest}

	close(events)
	r.Wait()

	var last stream.Event
	for ev := range r.Lifecycle() {
		last = ev
	}
	down, ok := last.(stream.ConnectionDown)
	if !ok {
		t.Fatalf("last lifecycle event = %T, want stream.ConnectionDown", last)
	}
	if !down.At.Equal(newest) {
		t.Errorf("last event At = %v, want %v", down.At, newest)
	}
}

func TestReconciler_FanOutClosesWhenStreamEnds(t *testing.T) {
	r, _, events := startReconciler(t)

	close(events)
	r.Wait()

	if _, ok := <-r.Withdrawals(); ok {
		t.Error("Withdrawals() still open after stream end")
	}
	if _, ok := <-r.Lifecycle(); ok {
		t.Error("Lifecycle() still open after stream end")
	}
	if _, ok := <-r.Outcomes(); ok {
		t.Error("Outcomes() still open after stream end")
	}
}

func TestReconciler_ContextCancelStopsLoop(t *testing.T) {
	led := ledger.New()
	events := make(chan stream.Event)
	r := New(led, events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()
	r.Wait()
}
