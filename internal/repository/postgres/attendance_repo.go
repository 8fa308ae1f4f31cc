package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type attendanceEntryRepo struct{ tx *sqlx.Tx }

func (r *attendanceEntryRepo) Create(ctx context.Context, a *domain.AttendanceEntry) (*domain.AttendanceEntry, error) {
	const q = `INSERT INTO attendance_entries (entry_id, client_id, employee_id, attendance_date, shift_id, status,
		absence_reason, is_excused, scheduled_hours, actual_hours, clock_in, clock_out, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, a.EntryID, a.ClientID, a.EmployeeID, a.AttendanceDate, a.ShiftID, a.Status,
		a.AbsenceReason, a.IsExcused, a.ScheduledHours, a.ActualHours, a.ClockIn, a.ClockOut)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "entry_id", a.EntryID)
	}
	return a, nil
}

func (r *attendanceEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.AttendanceEntry, error) {
	var a domain.AttendanceEntry
	err := r.tx.GetContext(ctx, &a, `SELECT * FROM attendance_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "AttendanceEntry", id)
	}
	return &a, nil
}

func (r *attendanceEntryRepo) Update(ctx context.Context, a *domain.AttendanceEntry) (*domain.AttendanceEntry, error) {
	const q = `UPDATE attendance_entries SET employee_id = $2, attendance_date = $3, shift_id = $4, status = $5,
		absence_reason = $6, is_excused = $7, scheduled_hours = $8, actual_hours = $9, clock_in = $10, clock_out = $11,
		updated_at = now()
		WHERE entry_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, a.EntryID, a.EmployeeID, a.AttendanceDate, a.ShiftID, a.Status,
		a.AbsenceReason, a.IsExcused, a.ScheduledHours, a.ActualHours, a.ClockIn, a.ClockOut)
	if err := row.Scan(&a.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "AttendanceEntry", a.EntryID)
	}
	return a, nil
}

func (r *attendanceEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM attendance_entries WHERE entry_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return apperrors.Infra("delete attendance entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("AttendanceEntry", id)
	}
	return nil
}

func (r *attendanceEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.AttendanceEntry], error) {
	page = page.Normalize(1000)
	var out []*domain.AttendanceEntry
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM attendance_entries WHERE client_id = $1 ORDER BY entry_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.AttendanceEntry]{}, apperrors.Infra("list attendance entries", err)
	}
	var total int64
	if err := r.tx.GetContext(ctx, &total, `SELECT count(*) FROM attendance_entries WHERE client_id = $1`, clientID); err != nil {
		return storage.ListResult[*domain.AttendanceEntry]{}, apperrors.Infra("count attendance entries", err)
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *attendanceEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM attendance_entries WHERE client_id = $1`, clientID); err != nil {
		return 0, apperrors.Infra("count attendance entries", err)
	}
	return n, nil
}

// FindDuplicate backs the unique-per-(employee, date, shift) invariant on
// attendance entries, mirroring the in-memory backend's linear scan.
func (r *attendanceEntryRepo) FindDuplicate(ctx context.Context, clientID, employeeID, shiftID string, date time.Time) (*domain.AttendanceEntry, error) {
	var a domain.AttendanceEntry
	err := r.tx.GetContext(ctx, &a,
		`SELECT * FROM attendance_entries WHERE client_id = $1 AND employee_id = $2 AND shift_id = $3 AND attendance_date = $4`,
		clientID, employeeID, shiftID, date)
	if err != nil {
		return nil, notFoundOrInfra(err, "AttendanceEntry", employeeID)
	}
	return &a, nil
}
