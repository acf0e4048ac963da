package executor

import (
	"sync"
	"testing"
	"time"
)

func TestPushBuffersUntilProcessBuffer(t *testing.T) {
	e := New(nil)
	var order []int
	var mu sync.Mutex

	record := func(n int) TaskFunc {
		return func() error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}
	}

	done1 := e.Push(record(1), false)
	done2 := e.Push(record(2), false)

	select {
	case <-done1:
		t.Fatal("buffered task should not run before ProcessBuffer")
	case <-time.After(20 * time.Millisecond):
	}

	e.ProcessBuffer()
	<-done1
	<-done2

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected FIFO order [1 2], got %v", order)
	}
}

func TestForcePushBypassesBuffer(t *testing.T) {
	e := New(nil)
	done := e.Push(func() error { return nil }, true)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("forced task did not run before ProcessBuffer")
	}
}

func TestProcessBufferIsIdempotent(t *testing.T) {
	e := New(nil)
	e.ProcessBuffer()
	if !e.Ready() {
		t.Fatal("expected ready after first ProcessBuffer")
	}
	e.ProcessBuffer() // must not panic or block
	if !e.Ready() {
		t.Fatal("expected still ready after second ProcessBuffer call")
	}
}

func TestFIFOOrderingAcrossReadyQueue(t *testing.T) {
	e := New(nil)
	e.ProcessBuffer()

	var order []int
	var mu sync.Mutex
	var dones []<-chan error
	for i := 0; i < 5; i++ {
		n := i
		dones = append(dones, e.Push(func() error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}, false))
	}
	for _, d := range dones {
		<-d
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range order {
		if n != i {
			t.Errorf("expected strict FIFO order, got %v", order)
			break
		}
	}
}

func TestPanicInTaskIsRecoveredAndDoesNotStallQueue(t *testing.T) {
	e := New(nil)
	e.ProcessBuffer()

	panicky := e.Push(func() error { panic("boom") }, false)
	next := e.Push(func() error { return nil }, false)

	err := <-panicky
	if err == nil {
		t.Fatal("expected a recovered panic to surface as an error")
	}

	select {
	case err := <-next:
		if err != nil {
			t.Fatalf("unexpected error on the following task: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queue stalled after a panicking task")
	}
}
