package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type workOrderRepo struct{ tx *sqlx.Tx }

func (r *workOrderRepo) Get(ctx context.Context, clientID, id string) (*domain.WorkOrder, error) {
	var w domain.WorkOrder
	err := r.tx.GetContext(ctx, &w, `SELECT * FROM work_orders WHERE work_order_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "WorkOrder", id)
	}
	return &w, nil
}

func (r *workOrderRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.WorkOrder], error) {
	page = page.Normalize(500)
	var out []*domain.WorkOrder
	err := r.tx.SelectContext(ctx, &out, `SELECT * FROM work_orders WHERE client_id = $1 ORDER BY work_order_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.WorkOrder]{}, apperrors.Infra("list work orders", err)
	}
	var total int64
	if err := r.tx.GetContext(ctx, &total, `SELECT count(*) FROM work_orders WHERE client_id = $1`, clientID); err != nil {
		return storage.ListResult[*domain.WorkOrder]{}, apperrors.Infra("count work orders", err)
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *workOrderRepo) ListByStatus(ctx context.Context, clientID string, status domain.WorkOrderStatus) ([]*domain.WorkOrder, error) {
	var out []*domain.WorkOrder
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM work_orders WHERE client_id = $1 AND status = $2 ORDER BY work_order_id`, clientID, status)
	if err != nil {
		return nil, apperrors.Infra("list work orders by status", err)
	}
	return out, nil
}

func (r *workOrderRepo) Create(ctx context.Context, w *domain.WorkOrder) (*domain.WorkOrder, error) {
	w.Version = 1
	const q = `INSERT INTO work_orders (work_order_id, client_id, style_code, planned_qty, planned_ship_date, required_date,
		actual_delivery_date, status, active_before_hold, priority, ideal_cycle_time_minutes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, now(), now())
		RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, w.WorkOrderID, w.ClientID, w.StyleCode, w.PlannedQty, w.PlannedShipDate, w.RequiredDate,
		w.ActualDeliveryDate, w.Status, w.ActiveBeforeHold, w.Priority, w.IdealCycleTimeMinutes)
	if err := row.Scan(&w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "work_order_id", w.WorkOrderID)
	}
	return w, nil
}

// Update applies optimistic locking: the WHERE clause requires the caller's
// Version to still match the stored row. A matched-but-zero-rows outcome
// means the version moved under us, not that the row disappeared.
func (r *workOrderRepo) Update(ctx context.Context, w *domain.WorkOrder) (*domain.WorkOrder, error) {
	expected := w.Version
	w.Version = expected + 1
	const q = `UPDATE work_orders SET style_code = $3, planned_qty = $4, planned_ship_date = $5, required_date = $6,
		actual_delivery_date = $7, status = $8, active_before_hold = $9, priority = $10, ideal_cycle_time_minutes = $11,
		version = $12, updated_at = now()
		WHERE work_order_id = $1 AND version = $2
		RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, w.WorkOrderID, expected, w.StyleCode, w.PlannedQty, w.PlannedShipDate, w.RequiredDate,
		w.ActualDeliveryDate, w.Status, w.ActiveBeforeHold, w.Priority, w.IdealCycleTimeMinutes, w.Version)
	if err := row.Scan(&w.UpdatedAt); err != nil {
		exists, checkErr := r.exists(ctx, w.WorkOrderID)
		if checkErr == nil && exists {
			return nil, apperrors.Stale("WorkOrder", w.WorkOrderID)
		}
		return nil, apperrors.NotFound("WorkOrder", w.WorkOrderID)
	}
	return w, nil
}

func (r *workOrderRepo) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM work_orders WHERE work_order_id = $1`, id)
	return n > 0, err
}
