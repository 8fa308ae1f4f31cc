package memory

import (
	"context"
	"sort"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type workOrderRepo struct {
	s  *Store
	sc *scope
}

func (r *workOrderRepo) Get(ctx context.Context, clientID, id string) (*domain.WorkOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workOrders[id]
	if !ok || w.ClientID != clientID {
		return nil, apperrors.NotFound("WorkOrder", id)
	}
	cp := *w
	return &cp, nil
}

func (r *workOrderRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.WorkOrder], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.WorkOrder
	for _, w := range r.s.workOrders {
		if w.ClientID == clientID {
			cp := *w
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].WorkOrderID < all[j].WorkOrderID })
	page = page.Normalize(500)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *workOrderRepo) ListByStatus(ctx context.Context, clientID string, status domain.WorkOrderStatus) ([]*domain.WorkOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.WorkOrder
	for _, w := range r.s.workOrders {
		if w.ClientID == clientID && w.Status == status {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkOrderID < out[j].WorkOrderID })
	return out, nil
}

func (r *workOrderRepo) Create(ctx context.Context, w *domain.WorkOrder) (*domain.WorkOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.workOrders[w.WorkOrderID]; exists {
		return nil, apperrors.Conflict("work_order_id", w.WorkOrderID)
	}
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	w.Version = 1
	cp := *w
	r.s.workOrders[w.WorkOrderID] = &cp
	r.sc.record(func() { delete(r.s.workOrders, w.WorkOrderID) })
	return &cp, nil
}

// Update applies optimistic locking: w.Version must match the stored
// version before the mutation is allowed to proceed.
func (r *workOrderRepo) Update(ctx context.Context, w *domain.WorkOrder) (*domain.WorkOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.workOrders[w.WorkOrderID]
	if !ok {
		return nil, apperrors.NotFound("WorkOrder", w.WorkOrderID)
	}
	if prev.Version != w.Version {
		return nil, apperrors.Stale("WorkOrder", w.WorkOrderID)
	}
	prevCopy := *prev
	w.Version = prev.Version + 1
	w.UpdatedAt = time.Now()
	cp := *w
	r.s.workOrders[w.WorkOrderID] = &cp
	r.sc.record(func() { r.s.workOrders[w.WorkOrderID] = &prevCopy })
	return &cp, nil
}
