package memory

import (
	"context"
	"sort"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

type holdEntryRepo struct {
	s  *Store
	sc *scope
}

func (r *holdEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.HoldEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.holdEntries[id]
	if !ok || h.ClientID != clientID {
		return nil, apperrors.NotFound("HoldEntry", id)
	}
	cp := *h
	return &cp, nil
}

func (r *holdEntryRepo) ListByWorkOrder(ctx context.Context, clientID, workOrderID string) ([]*domain.HoldEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.HoldEntry
	for _, h := range r.s.holdEntries {
		if h.ClientID == clientID && h.WorkOrderID == workOrderID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	return out, nil
}

func (r *holdEntryRepo) ListOpen(ctx context.Context, clientID string) ([]*domain.HoldEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.HoldEntry
	for _, h := range r.s.holdEntries {
		if h.ClientID == clientID && !h.IsResumed() {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	return out, nil
}

func (r *holdEntryRepo) Create(ctx context.Context, h *domain.HoldEntry) (*domain.HoldEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// No two concurrently active holds for the same work order with the
	// same reason code.
	for _, existing := range r.s.holdEntries {
		if existing.ClientID == h.ClientID && existing.WorkOrderID == h.WorkOrderID &&
			existing.Reason == h.Reason && !existing.IsResumed() {
			return nil, apperrors.Conflict("work_order_id,reason", h.WorkOrderID)
		}
	}
	now := time.Now()
	h.CreatedAt, h.UpdatedAt = now, now
	h.Version = 1
	cp := *h
	r.s.holdEntries[h.HoldID] = &cp
	r.sc.record(func() { delete(r.s.holdEntries, h.HoldID) })
	return &cp, nil
}

func (r *holdEntryRepo) Update(ctx context.Context, h *domain.HoldEntry) (*domain.HoldEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.holdEntries[h.HoldID]
	if !ok {
		return nil, apperrors.NotFound("HoldEntry", h.HoldID)
	}
	if prev.IsResumed() {
		return nil, apperrors.Validation("hold_id", "resumed holds are immutable")
	}
	if prev.Version != h.Version {
		return nil, apperrors.Stale("HoldEntry", h.HoldID)
	}
	prevCopy := *prev
	h.Version = prev.Version + 1
	h.UpdatedAt = time.Now()
	cp := *h
	r.s.holdEntries[h.HoldID] = &cp
	r.sc.record(func() { r.s.holdEntries[h.HoldID] = &prevCopy })
	return &cp, nil
}

type eventRepo struct {
	s *Store
}

func (r *eventRepo) Append(ctx context.Context, events []domain.DomainEvent) error {
	// Events are appended by the unit of work's flush, not directly by
	// callers; this method exists so replay/test tooling can seed history.
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, events...)
	return nil
}

func (r *eventRepo) ListByAggregate(ctx context.Context, aggregateType, aggregateID string) ([]domain.DomainEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.DomainEvent
	for _, e := range r.s.events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *eventRepo) Get(ctx context.Context, eventID string) (*domain.DomainEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.EventID == eventID {
			cp := e
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("DomainEvent", eventID)
}
