package repository

import (
	"context"
	"sync"

	"github.com/manufab-platform/kpi-core/internal/domain"
)

// committer is implemented by a backend's transactional scope: flush
// staged writes and either persist or discard them.
type committer interface {
	flush(ctx context.Context, events []domain.DomainEvent) error
	rollback(ctx context.Context) error
}

// UnitOfWork owns a transactional scope (opaque to this package — Postgres
// or in-memory) and the events staged on it during the scope's lifetime.
// Events are collected, not dispatched, until Commit flushes rows and
// events atomically and returns the events queued for async dispatch.
type UnitOfWork struct {
	Repos Repos

	mu      sync.Mutex
	staged  []domain.DomainEvent
	scope   committer
	done    bool
}

// NewUnitOfWork wraps a backend-specific scope. Backends call this from
// their Begin implementation.
func NewUnitOfWork(repos Repos, scope committer) *UnitOfWork {
	return &UnitOfWork{Repos: repos, scope: scope}
}

// Collect stages an event on this unit of work. Not dispatched until Commit.
func (u *UnitOfWork) Collect(event domain.DomainEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, event)
}

// StagedEvents returns a copy of the events collected so far, in collection
// order (the order they will be persisted and synchronously dispatched in).
func (u *UnitOfWork) StagedEvents() []domain.DomainEvent {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.DomainEvent, len(u.staged))
	copy(out, u.staged)
	return out
}

// Commit persists staged rows and events atomically, returning the list of
// events now eligible for sync/async dispatch. The caller (service facade)
// is responsible for invoking the event bus with the returned events —
// keeping dispatch out of this package keeps the repository layer free of
// an event-bus dependency.
func (u *UnitOfWork) Commit(ctx context.Context) ([]domain.DomainEvent, error) {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil, nil
	}
	u.done = true
	events := make([]domain.DomainEvent, len(u.staged))
	copy(events, u.staged)
	u.mu.Unlock()

	if err := u.scope.flush(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Rollback discards both staged rows and staged events.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	u.mu.Unlock()
	return u.scope.rollback(ctx)
}
