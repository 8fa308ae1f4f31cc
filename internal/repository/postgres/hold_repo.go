package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// insertEventSQL appends one staged domain event inside the unit of work's
// live transaction; txScope.flush names each field against domain.DomainEvent
// so sqlx's NamedExecContext can bind straight off its db tags.
const insertEventSQL = `INSERT INTO domain_events (event_id, event_type, aggregate_type, aggregate_id, client_id,
	occurred_at, triggered_by, payload)
	VALUES (:event_id, :event_type, :aggregate_type, :aggregate_id, :client_id, :occurred_at, :triggered_by, :payload)`

type holdEntryRepo struct{ tx *sqlx.Tx }

func (r *holdEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.HoldEntry, error) {
	var h domain.HoldEntry
	err := r.tx.GetContext(ctx, &h, `SELECT * FROM hold_entries WHERE hold_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "HoldEntry", id)
	}
	return &h, nil
}

func (r *holdEntryRepo) ListByWorkOrder(ctx context.Context, clientID, workOrderID string) ([]*domain.HoldEntry, error) {
	var out []*domain.HoldEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM hold_entries WHERE client_id = $1 AND work_order_id = $2 ORDER BY initiated_at`,
		clientID, workOrderID)
	if err != nil {
		return nil, apperrors.Infra("list holds by work order", err)
	}
	return out, nil
}

func (r *holdEntryRepo) ListOpen(ctx context.Context, clientID string) ([]*domain.HoldEntry, error) {
	var out []*domain.HoldEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM hold_entries WHERE client_id = $1 AND resumed_at IS NULL ORDER BY initiated_at`, clientID)
	if err != nil {
		return nil, apperrors.Infra("list open holds", err)
	}
	return out, nil
}

// Create enforces that no two concurrently active holds share a work order
// and reason, mirroring the in-memory backend's pre-insert scan — done here
// as an explicit existence check rather than a partial unique index, since
// "active" depends on resumed_at being NULL rather than a fixed column set.
func (r *holdEntryRepo) Create(ctx context.Context, h *domain.HoldEntry) (*domain.HoldEntry, error) {
	var clash int
	err := r.tx.GetContext(ctx, &clash,
		`SELECT count(*) FROM hold_entries WHERE client_id = $1 AND work_order_id = $2 AND reason = $3 AND resumed_at IS NULL`,
		h.ClientID, h.WorkOrderID, h.Reason)
	if err != nil {
		return nil, apperrors.Infra("check active hold conflict", err)
	}
	if clash > 0 {
		return nil, apperrors.Conflict("work_order_id,reason", h.WorkOrderID)
	}
	h.Version = 1
	const q = `INSERT INTO hold_entries (hold_id, client_id, work_order_id, quantity_held, reason, severity, description,
		required_action, initiated_by, initiated_at, resumed_at, disposition, released_quantity, approved_by, version,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, now(), now())
		RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, h.HoldID, h.ClientID, h.WorkOrderID, h.QuantityHeld, h.Reason, h.Severity, h.Description,
		h.RequiredAction, h.InitiatedBy, h.InitiatedAt, h.ResumedAt, h.Disposition, h.ReleasedQuantity, h.ApprovedBy)
	if err := row.Scan(&h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "hold_id", h.HoldID)
	}
	return h, nil
}

func (r *holdEntryRepo) Update(ctx context.Context, h *domain.HoldEntry) (*domain.HoldEntry, error) {
	var resumed bool
	if err := r.tx.GetContext(ctx, &resumed,
		`SELECT resumed_at IS NOT NULL FROM hold_entries WHERE hold_id = $1`, h.HoldID); err != nil {
		return nil, notFoundOrInfra(err, "HoldEntry", h.HoldID)
	}
	if resumed {
		return nil, apperrors.Validation("hold_id", "resumed holds are immutable")
	}
	expected := h.Version
	h.Version = expected + 1
	const q = `UPDATE hold_entries SET quantity_held = $3, reason = $4, severity = $5, description = $6,
		required_action = $7, resumed_at = $8, disposition = $9, released_quantity = $10, approved_by = $11,
		version = $12, updated_at = now()
		WHERE hold_id = $1 AND version = $2
		RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, h.HoldID, expected, h.QuantityHeld, h.Reason, h.Severity, h.Description,
		h.RequiredAction, h.ResumedAt, h.Disposition, h.ReleasedQuantity, h.ApprovedBy, h.Version)
	if err := row.Scan(&h.UpdatedAt); err != nil {
		return nil, apperrors.Stale("HoldEntry", h.HoldID)
	}
	return h, nil
}

type eventRepo struct{ tx *sqlx.Tx }

// Append seeds event history outside of the unit of work's own flush path,
// used by replay/test tooling; normal commits go through txScope.flush.
func (r *eventRepo) Append(ctx context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		if _, err := r.tx.NamedExecContext(ctx, insertEventSQL, e); err != nil {
			return apperrors.Infra("append domain event", err)
		}
	}
	return nil
}

func (r *eventRepo) ListByAggregate(ctx context.Context, aggregateType, aggregateID string) ([]domain.DomainEvent, error) {
	var out []domain.DomainEvent
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM domain_events WHERE aggregate_type = $1 AND aggregate_id = $2 ORDER BY occurred_at`,
		aggregateType, aggregateID)
	if err != nil {
		return nil, apperrors.Infra("list events by aggregate", err)
	}
	return out, nil
}

func (r *eventRepo) Get(ctx context.Context, eventID string) (*domain.DomainEvent, error) {
	var e domain.DomainEvent
	err := r.tx.GetContext(ctx, &e, `SELECT * FROM domain_events WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, notFoundOrInfra(err, "DomainEvent", eventID)
	}
	return &e, nil
}
