package mainloop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(8, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l, cancel
}

func TestDoRunsOnLoopInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 5; i++ {
		i := i
		if !l.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}) {
			t.Fatalf("post %d rejected", i)
		}
	}
	if err := l.Do(context.Background(), func() {
		mu.Lock()
		order = append(order, 99)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 1, 2, 3, 4, 99}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestTaskPanicDoesNotStopLoop(t *testing.T) {
	l, _ := startLoop(t)

	l.Post(func() { panic("boom") })

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !ran {
		t.Fatalf("expected task after panic to run")
	}
}

func TestStoppedLoopRejectsWork(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop")
	}

	if l.Post(func() {}) {
		t.Fatalf("expected Post to fail after shutdown")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDoHonoursContext(t *testing.T) {
	l, _ := startLoop(t)

	block := make(chan struct{})
	l.Post(func() { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
