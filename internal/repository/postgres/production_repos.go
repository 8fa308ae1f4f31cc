package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type productionEntryRepo struct{ tx *sqlx.Tx }

func (r *productionEntryRepo) Create(ctx context.Context, p *domain.ProductionEntry) (*domain.ProductionEntry, error) {
	const q = `INSERT INTO production_entries (entry_id, client_id, work_order_id, product_id, shift_id, production_date,
		units_produced, run_time_hours, employees_assigned, defect_count, scrap_count, actual_cycle_time_minutes,
		created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, p.EntryID, p.ClientID, p.WorkOrderID, p.ProductID, p.ShiftID, p.ProductionDate,
		p.UnitsProduced, p.RunTimeHours, p.EmployeesAssigned, p.DefectCount, p.ScrapCount, p.ActualCycleTimeMinutes, p.CreatedBy)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "entry_id", p.EntryID)
	}
	return p, nil
}

func (r *productionEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.ProductionEntry, error) {
	var p domain.ProductionEntry
	err := r.tx.GetContext(ctx, &p, `SELECT * FROM production_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "ProductionEntry", id)
	}
	return &p, nil
}

func (r *productionEntryRepo) Update(ctx context.Context, p *domain.ProductionEntry) (*domain.ProductionEntry, error) {
	const q = `UPDATE production_entries SET work_order_id = $2, product_id = $3, shift_id = $4, production_date = $5,
		units_produced = $6, run_time_hours = $7, employees_assigned = $8, defect_count = $9, scrap_count = $10,
		actual_cycle_time_minutes = $11, updated_at = now()
		WHERE entry_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, p.EntryID, p.WorkOrderID, p.ProductID, p.ShiftID, p.ProductionDate,
		p.UnitsProduced, p.RunTimeHours, p.EmployeesAssigned, p.DefectCount, p.ScrapCount, p.ActualCycleTimeMinutes)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "ProductionEntry", p.EntryID)
	}
	return p, nil
}

func (r *productionEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM production_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return apperrors.Infra("delete production entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("ProductionEntry", id)
	}
	return nil
}

func (r *productionEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.ProductionEntry], error) {
	page = page.Normalize(1000)
	var out []*domain.ProductionEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM production_entries WHERE client_id = $1 ORDER BY entry_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.ProductionEntry]{}, apperrors.Infra("list production entries", err)
	}
	var total int64
	if err := r.tx.GetContext(ctx, &total, `SELECT count(*) FROM production_entries WHERE client_id = $1`, clientID); err != nil {
		return storage.ListResult[*domain.ProductionEntry]{}, apperrors.Infra("count production entries", err)
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *productionEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM production_entries WHERE client_id = $1`, clientID); err != nil {
		return 0, apperrors.Infra("count production entries", err)
	}
	return n, nil
}

func (r *productionEntryRepo) ListInWindow(ctx context.Context, clientID string, from, to time.Time) ([]*domain.ProductionEntry, error) {
	var out []*domain.ProductionEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM production_entries WHERE client_id = $1 AND production_date BETWEEN $2 AND $3 ORDER BY entry_id`,
		clientID, from, to)
	if err != nil {
		return nil, apperrors.Infra("list production entries in window", err)
	}
	return out, nil
}

type downtimeEntryRepo struct{ tx *sqlx.Tx }

func (r *downtimeEntryRepo) Create(ctx context.Context, d *domain.DowntimeEntry) (*domain.DowntimeEntry, error) {
	const q = `INSERT INTO downtime_entries (entry_id, client_id, equipment_id, reason_code, category, start_at, end_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, d.EntryID, d.ClientID, d.EquipmentID, d.ReasonCode, d.Category, d.StartAt, d.EndAt)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "entry_id", d.EntryID)
	}
	return d, nil
}

func (r *downtimeEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.DowntimeEntry, error) {
	var d domain.DowntimeEntry
	err := r.tx.GetContext(ctx, &d, `SELECT * FROM downtime_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "DowntimeEntry", id)
	}
	return &d, nil
}

func (r *downtimeEntryRepo) Update(ctx context.Context, d *domain.DowntimeEntry) (*domain.DowntimeEntry, error) {
	const q = `UPDATE downtime_entries SET equipment_id = $2, reason_code = $3, category = $4, start_at = $5, end_at = $6, updated_at = now()
		WHERE entry_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, d.EntryID, d.EquipmentID, d.ReasonCode, d.Category, d.StartAt, d.EndAt)
	if err := row.Scan(&d.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "DowntimeEntry", d.EntryID)
	}
	return d, nil
}

func (r *downtimeEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM downtime_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return apperrors.Infra("delete downtime entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("DowntimeEntry", id)
	}
	return nil
}

func (r *downtimeEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.DowntimeEntry], error) {
	page = page.Normalize(1000)
	var out []*domain.DowntimeEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM downtime_entries WHERE client_id = $1 ORDER BY entry_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.DowntimeEntry]{}, apperrors.Infra("list downtime entries", err)
	}
	var total int64
	if err := r.tx.GetContext(ctx, &total, `SELECT count(*) FROM downtime_entries WHERE client_id = $1`, clientID); err != nil {
		return storage.ListResult[*domain.DowntimeEntry]{}, apperrors.Infra("count downtime entries", err)
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *downtimeEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM downtime_entries WHERE client_id = $1`, clientID); err != nil {
		return 0, apperrors.Infra("count downtime entries", err)
	}
	return n, nil
}

type qualityEntryRepo struct{ tx *sqlx.Tx }

func (r *qualityEntryRepo) Create(ctx context.Context, q *domain.QualityEntry) (*domain.QualityEntry, error) {
	const stmt = `INSERT INTO quality_entries (entry_id, client_id, work_order_id, product_id, inspected_qty, defect_qty,
		rejected_qty, inspection_stage, primary_defect_type_id, severity, disposition, inspector_id, inspected_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, stmt, q.EntryID, q.ClientID, q.WorkOrderID, q.ProductID, q.InspectedQty, q.DefectQty,
		q.RejectedQty, q.InspectionStage, q.PrimaryDefectTypeID, q.Severity, q.Disposition, q.InspectorID, q.InspectedAt)
	if err := row.Scan(&q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "entry_id", q.EntryID)
	}
	return q, nil
}

func (r *qualityEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.QualityEntry, error) {
	var q domain.QualityEntry
	err := r.tx.GetContext(ctx, &q, `SELECT * FROM quality_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "QualityEntry", id)
	}
	return &q, nil
}

func (r *qualityEntryRepo) Update(ctx context.Context, q *domain.QualityEntry) (*domain.QualityEntry, error) {
	const stmt = `UPDATE quality_entries SET work_order_id = $2, product_id = $3, inspected_qty = $4, defect_qty = $5,
		rejected_qty = $6, inspection_stage = $7, primary_defect_type_id = $8, severity = $9, disposition = $10,
		inspector_id = $11, inspected_at = $12, updated_at = now()
		WHERE entry_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, stmt, q.EntryID, q.WorkOrderID, q.ProductID, q.InspectedQty, q.DefectQty,
		q.RejectedQty, q.InspectionStage, q.PrimaryDefectTypeID, q.Severity, q.Disposition, q.InspectorID, q.InspectedAt)
	if err := row.Scan(&q.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "QualityEntry", q.EntryID)
	}
	return q, nil
}

func (r *qualityEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM quality_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return apperrors.Infra("delete quality entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("QualityEntry", id)
	}
	return nil
}

func (r *qualityEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.QualityEntry], error) {
	page = page.Normalize(1000)
	var out []*domain.QualityEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM quality_entries WHERE client_id = $1 ORDER BY entry_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.QualityEntry]{}, apperrors.Infra("list quality entries", err)
	}
	var total int64
	if err := r.tx.GetContext(ctx, &total, `SELECT count(*) FROM quality_entries WHERE client_id = $1`, clientID); err != nil {
		return storage.ListResult[*domain.QualityEntry]{}, apperrors.Infra("count quality entries", err)
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *qualityEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM quality_entries WHERE client_id = $1`, clientID); err != nil {
		return 0, apperrors.Infra("count quality entries", err)
	}
	return n, nil
}
