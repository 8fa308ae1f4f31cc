// Package eventbus implements the collect/flush-on-commit domain event
// dispatcher: events are staged on a unit of work, persisted
// atomically with the data change, then fanned out to synchronous
// handlers (which block the commit path) and an asynchronous bounded
// worker pool, adapted from an external job queue shape to an in-process
// bounded buffer.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/metrics"
)

// Handler processes one event. A returned error is logged but never
// propagated to the caller that triggered dispatch.
type Handler func(ctx context.Context, event domain.DomainEvent) error

// criticalEventTypes block the async enqueue path up to the bus's bounded
// wait instead of being dropped when the queue is saturated; they mark
// state a downstream handler cannot safely miss (threshold breaches,
// status transitions, hold lifecycle).
var criticalEventTypes = map[domain.EventType]bool{
	domain.EventWorkOrderStatusChanged: true,
	domain.EventHoldCreated:            true,
	domain.EventHoldResumed:            true,
	domain.EventKPIThresholdViolated:   true,
}

// IsCritical reports whether an event type is in the blocking class.
func IsCritical(t domain.EventType) bool { return criticalEventTypes[t] }

// Config controls worker pool sizing and timeouts.
type Config struct {
	WorkerPoolSize  int
	QueueSize       int
	CriticalWait    time.Duration
	HandlerDeadline time.Duration
}

// Bus dispatches staged events to registered handlers.
type Bus struct {
	cfg    Config
	log    *logrus.Entry
	syncH  map[domain.EventType][]Handler
	asyncH map[domain.EventType][]Handler

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []domain.DomainEvent
	closed  bool
	wg      sync.WaitGroup

	deadLetter *DeadLetterList
}

// New builds a Bus and starts its async worker pool.
func New(cfg Config, log *logrus.Entry, deadLetter *DeadLetterList) *Bus {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.CriticalWait <= 0 {
		cfg.CriticalWait = 100 * time.Millisecond
	}
	if cfg.HandlerDeadline <= 0 {
		cfg.HandlerDeadline = 2 * time.Second
	}
	if deadLetter == nil {
		deadLetter = NewDeadLetterList(0)
	}
	b := &Bus{
		cfg:        cfg,
		log:        log,
		syncH:      make(map[domain.EventType][]Handler),
		asyncH:     make(map[domain.EventType][]Handler),
		deadLetter: deadLetter,
	}
	b.cond = sync.NewCond(&b.mu)
	for i := 0; i < cfg.WorkerPoolSize; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return b
}

// RegisterSync adds a handler invoked synchronously on the commit path,
// in registration order. Used for audit/compliance writes and cache
// invalidation.
func (b *Bus) RegisterSync(t domain.EventType, h Handler) {
	b.syncH[t] = append(b.syncH[t], h)
}

// RegisterAsync adds a handler invoked off the bounded worker pool. Used
// for notification dispatch, analytics fan-out, threshold re-evaluation.
func (b *Bus) RegisterAsync(t domain.EventType, h Handler) {
	b.asyncH[t] = append(b.asyncH[t], h)
}

// DispatchOnCommit runs sync handlers for each event (already persisted by
// the caller's unit of work) and enqueues the events for async dispatch.
// Sync handler failures are logged, never returned — the commit already
// stands because the event is persisted.
func (b *Bus) DispatchOnCommit(ctx context.Context, events []domain.DomainEvent) {
	for _, evt := range events {
		for _, h := range b.syncH[evt.EventType] {
			b.runWithDeadline(ctx, evt, h, "sync")
		}
	}
	for _, evt := range events {
		b.enqueueAsync(evt)
	}
}

func (b *Bus) runWithDeadline(ctx context.Context, evt domain.DomainEvent, h Handler, class string) {
	hctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerDeadline)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errPanic(r)
				return
			}
		}()
		done <- h(hctx, evt)
	}()

	select {
	case err := <-done:
		b.report(evt, class, err)
	case <-hctx.Done():
		b.report(evt, class, hctx.Err())
	}
}

func (b *Bus) report(evt domain.DomainEvent, class string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if b.log != nil {
			b.log.WithFields(logrus.Fields{
				"event_type": evt.EventType,
				"event_id":   evt.EventID,
				"class":      class,
			}).WithError(err).Warn("event handler failed")
		}
		b.deadLetter.RecordFailure(evt, err)
	}
	metrics.ObserveEventDispatch(string(evt.EventType), class, status)
}

// enqueueAsync stages evt for the worker pool under a bounded-queue policy:
// critical events block up to CriticalWait for space; non-critical events
// drop the oldest queued entry when saturated.
func (b *Bus) enqueueAsync(evt domain.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	if len(b.queue) < b.cfg.QueueSize {
		b.queue = append(b.queue, evt)
		metrics.SetEventQueueDepth(len(b.queue))
		b.cond.Signal()
		return
	}

	if IsCritical(evt.EventType) {
		deadline := time.Now().Add(b.cfg.CriticalWait)
		for len(b.queue) >= b.cfg.QueueSize && !b.closed {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			b.waitWithTimeout(remaining)
		}
		if b.closed {
			return
		}
		if len(b.queue) < b.cfg.QueueSize {
			b.queue = append(b.queue, evt)
		} else {
			// Bounded wait exhausted: still append, exceeding QueueSize by
			// one rather than silently dropping a critical event.
			b.queue = append(b.queue, evt)
			if b.log != nil {
				b.log.WithField("event_type", evt.EventType).Warn("critical event queue overflow; appended past capacity")
			}
		}
		metrics.SetEventQueueDepth(len(b.queue))
		b.cond.Signal()
		return
	}

	// Non-critical: drop the oldest queued entry to make room.
	dropped := b.queue[0]
	b.queue = append(b.queue[1:], evt)
	metrics.SetEventQueueDepth(len(b.queue))
	if b.log != nil {
		b.log.WithField("event_type", dropped.EventType).Warn("event queue saturated; dropped oldest non-critical event")
	}
	b.cond.Signal()
}

// waitWithTimeout waits on the condition variable for at most d, returning
// control to enqueueAsync's polling loop either way.
func (b *Bus) waitWithTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer timer.Stop()
	b.cond.Wait()
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if b.closed && len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		evt := b.queue[0]
		b.queue = b.queue[1:]
		metrics.SetEventQueueDepth(len(b.queue))
		b.mu.Unlock()

		for _, h := range b.asyncH[evt.EventType] {
			b.runWithDeadline(context.Background(), evt, h, "async")
		}
	}
}

// Shutdown stops accepting new async work and drains the queue within the
// grace window. Events still unprocessed when the grace window elapses
// remain in EVENT_STORE (the caller persisted them at commit time) and are
// replayable by event_id.
func (b *Bus) Shutdown(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		deadline := time.After(grace)
		for {
			b.mu.Lock()
			empty := len(b.queue) == 0
			b.mu.Unlock()
			if empty {
				close(done)
				return
			}
			select {
			case <-deadline:
				close(done)
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()
	<-done

	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
	b.wg.Wait()
}

// QueueDepth reports the current async queue length; used by tests and
// health reporting.
func (b *Bus) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Capacity returns the configured bound on the async queue, for callers
// that want to judge saturation (e.g. a health check) against QueueDepth.
func (b *Bus) Capacity() int {
	return b.cfg.QueueSize
}

type panicError struct{ v interface{} }

func (e panicError) Error() string { return "panic in handler: " + errString(e.v) }

func errPanic(v interface{}) error { return panicError{v: v} }

func errString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
