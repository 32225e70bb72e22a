package stream

import (
	"testing"
	"time"
)

func TestQueue_BasicPushPop(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_GrowsAt70Percent(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 7; i++ {
		q.Push(i)
	}

	if q.Cap() <= 10 {
		t.Errorf("Cap() = %d, expected growth after 70%% fill", q.Cap())
	}

	// Order survives the grow.
	for i := 0; i < 7; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
}

func TestQueue_MultipleGrowsPreserveOrder(t *testing.T) {
	q := NewQueue[int](4)

	for i := 0; i < 100; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Len() != 100 {
		t.Errorf("Len() = %d, want 100", q.Len())
	}

	for i := 0; i < 100; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
}

func TestQueue_BlockingPop(t *testing.T) {
	q := NewQueue[int](10)

	received := make(chan int, 1)
	go func() {
		val, ok := q.Pop()
		if ok {
			received <- val
		}
	}()

	// Give the popper time to start waiting.
	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("popped %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop() did not unblock")
	}
}

func TestQueue_CloseDrainsThenSignals(t *testing.T) {
	q := NewQueue[int](10)
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Error("Push() after Close returned true")
	}

	// Remainder is drained in order.
	for i := 1; i <= 2; i++ {
		val, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() returned false before drain complete")
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop() returned true on closed empty queue")
	}
}

func TestQueue_CloseUnblocksWaiters(t *testing.T) {
	q := NewQueue[int](10)

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop() returned true after Close on empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop() did not unblock on Close")
	}
}

func TestQueue_TryPopEmpty(t *testing.T) {
	q := NewQueue[int](4)
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}
