package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
)

func TestDispatchOnCommitRunsSyncHandlersInOrder(t *testing.T) {
	bus := New(Config{WorkerPoolSize: 1, QueueSize: 4}, nil, nil)
	defer bus.Shutdown(time.Second)

	var mu sync.Mutex
	var order []string
	bus.RegisterSync(domain.EventHoldCreated, func(ctx context.Context, e domain.DomainEvent) error {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		return nil
	})
	bus.RegisterSync(domain.EventHoldCreated, func(ctx context.Context, e domain.DomainEvent) error {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		return nil
	})

	bus.DispatchOnCommit(context.Background(), []domain.DomainEvent{
		{EventID: "e1", EventType: domain.EventHoldCreated},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected registration order, got %v", order)
	}
}

func TestAsyncHandlerRunsEventually(t *testing.T) {
	bus := New(Config{WorkerPoolSize: 2, QueueSize: 4}, nil, nil)
	defer bus.Shutdown(time.Second)

	done := make(chan struct{})
	bus.RegisterAsync(domain.EventProductionEntryCreated, func(ctx context.Context, e domain.DomainEvent) error {
		close(done)
		return nil
	})

	bus.DispatchOnCommit(context.Background(), []domain.DomainEvent{
		{EventID: "e2", EventType: domain.EventProductionEntryCreated},
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected async handler to run")
	}
}

func TestSyncHandlerFailureDoesNotPanicAndFeedsDeadLetter(t *testing.T) {
	dl := NewDeadLetterList(10)
	bus := New(Config{WorkerPoolSize: 1, QueueSize: 4}, nil, dl)
	defer bus.Shutdown(time.Second)

	bus.RegisterSync(domain.EventHoldCreated, func(ctx context.Context, e domain.DomainEvent) error {
		return errors.New("boom")
	})

	evt := domain.DomainEvent{EventID: "e3", EventType: domain.EventHoldCreated}
	for i := 0; i < deadLetterThreshold; i++ {
		bus.DispatchOnCommit(context.Background(), []domain.DomainEvent{evt})
	}

	entries := dl.Entries()
	if len(entries) != 1 || entries[0].Event.EventID != "e3" {
		t.Fatalf("expected one dead-lettered entry, got %+v", entries)
	}
}

func TestNonCriticalEventDroppedWhenQueueSaturated(t *testing.T) {
	// Built without New so that no worker goroutine drains the queue
	// between the two enqueues (New always starts at least one worker).
	bus := &Bus{
		cfg:        Config{QueueSize: 1},
		syncH:      make(map[domain.EventType][]Handler),
		asyncH:     make(map[domain.EventType][]Handler),
		deadLetter: NewDeadLetterList(0),
	}
	bus.cond = sync.NewCond(&bus.mu)
	defer func() {
		bus.mu.Lock()
		bus.closed = true
		bus.cond.Broadcast()
		bus.mu.Unlock()
	}()

	bus.enqueueAsync(domain.DomainEvent{EventID: "first", EventType: domain.EventProductionEntryCreated})
	bus.enqueueAsync(domain.DomainEvent{EventID: "second", EventType: domain.EventProductionEntryCreated})

	if bus.QueueDepth() != 1 {
		t.Fatalf("expected queue depth 1, got %d", bus.QueueDepth())
	}
	bus.mu.Lock()
	head := bus.queue[0].EventID
	bus.mu.Unlock()
	if head != "second" {
		t.Fatalf("expected oldest dropped, head=%s", head)
	}
}
