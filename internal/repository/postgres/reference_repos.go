package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type clientRepo struct{ tx *sqlx.Tx }

func (r *clientRepo) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	var c domain.Client
	err := r.tx.GetContext(ctx, &c, `SELECT * FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "Client", clientID)
	}
	return &c, nil
}

func (r *clientRepo) List(ctx context.Context) ([]*domain.Client, error) {
	var out []*domain.Client
	if err := r.tx.SelectContext(ctx, &out, `SELECT * FROM clients ORDER BY client_id`); err != nil {
		return nil, apperrors.Infra("list clients", err)
	}
	return out, nil
}

func (r *clientRepo) Create(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	c.Active = true
	const q = `INSERT INTO clients (client_id, display_name, timezone, active, created_at, updated_at)
		VALUES ($1, $2, $3, true, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, c.ClientID, c.DisplayName, c.Timezone)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "client_id", c.ClientID)
	}
	return c, nil
}

func (r *clientRepo) Deactivate(ctx context.Context, clientID string) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE clients SET active = false, updated_at = now() WHERE client_id = $1`, clientID)
	if err != nil {
		return apperrors.Infra("deactivate client", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("Client", clientID)
	}
	return nil
}

type userRepo struct{ tx *sqlx.Tx }

func (r *userRepo) scanOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var u domain.User
	row := r.tx.QueryRowContext(ctx, query, args...)
	err := row.Scan(&u.UserID, &u.DisplayName, &u.PasswordHash, &u.Role, pq.Array(&u.AssignedClientIDs),
		&u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userColumns = `user_id, display_name, password_hash, role, assigned_client_ids, active, created_at, updated_at`

func (r *userRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return nil, notFoundOrInfra(err, "User", userID)
	}
	return u, nil
}

func (r *userRepo) GetByDisplayName(ctx context.Context, name string) (*domain.User, error) {
	u, err := r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE display_name = $1`, name)
	if err != nil {
		return nil, notFoundOrInfra(err, "User", name)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `INSERT INTO users (user_id, display_name, password_hash, role, assigned_client_ids, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, u.UserID, u.DisplayName, u.PasswordHash, u.Role, pq.Array(u.AssignedClientIDs), u.Active)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "user_id", u.UserID)
	}
	return u, nil
}

func (r *userRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `UPDATE users SET display_name = $2, password_hash = $3, role = $4, assigned_client_ids = $5,
		active = $6, updated_at = now() WHERE user_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, u.UserID, u.DisplayName, u.PasswordHash, u.Role, pq.Array(u.AssignedClientIDs), u.Active)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "User", u.UserID)
	}
	return u, nil
}

type productRepo struct{ tx *sqlx.Tx }

func (r *productRepo) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	const q = `INSERT INTO products (product_id, client_id, code, description, ideal_cycle_time_minutes, lead_time_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, p.ProductID, p.ClientID, p.Code, p.Description, p.IdealCycleTimeMinutes, p.LeadTimeDays)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "code", p.Code)
	}
	return p, nil
}

func (r *productRepo) Get(ctx context.Context, clientID, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.tx.GetContext(ctx, &p, `SELECT * FROM products WHERE product_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "Product", id)
	}
	return &p, nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	const q = `UPDATE products SET code = $2, description = $3, ideal_cycle_time_minutes = $4, lead_time_days = $5, updated_at = now()
		WHERE product_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, p.ProductID, p.Code, p.Description, p.IdealCycleTimeMinutes, p.LeadTimeDays)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "Product", p.ProductID)
	}
	return p, nil
}

func (r *productRepo) Delete(ctx context.Context, clientID, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return apperrors.Infra("delete product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("Product", id)
	}
	return nil
}

func (r *productRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Product], error) {
	page = page.Normalize(200)
	var out []*domain.Product
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM products WHERE client_id = $1 ORDER BY product_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.Product]{}, apperrors.Infra("list products", err)
	}
	total, err := r.Count(ctx, clientID)
	if err != nil {
		return storage.ListResult[*domain.Product]{}, err
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *productRepo) Count(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM products WHERE client_id = $1`, clientID); err != nil {
		return 0, apperrors.Infra("count products", err)
	}
	return n, nil
}

type shiftRepo struct{ tx *sqlx.Tx }

func (r *shiftRepo) Create(ctx context.Context, sh *domain.Shift) (*domain.Shift, error) {
	const q = `INSERT INTO shifts (shift_id, client_id, name, start_local, end_local, scheduled_break_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, sh.ShiftID, sh.ClientID, sh.Name, sh.StartLocal, sh.EndLocal, sh.ScheduledBreakMinutes)
	if err := row.Scan(&sh.CreatedAt, &sh.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "shift_id", sh.ShiftID)
	}
	return sh, nil
}

func (r *shiftRepo) Get(ctx context.Context, clientID, id string) (*domain.Shift, error) {
	var sh domain.Shift
	err := r.tx.GetContext(ctx, &sh, `SELECT * FROM shifts WHERE shift_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return nil, notFoundOrInfra(err, "Shift", id)
	}
	return &sh, nil
}

func (r *shiftRepo) Update(ctx context.Context, sh *domain.Shift) (*domain.Shift, error) {
	const q = `UPDATE shifts SET name = $2, start_local = $3, end_local = $4, scheduled_break_minutes = $5, updated_at = now()
		WHERE shift_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, sh.ShiftID, sh.Name, sh.StartLocal, sh.EndLocal, sh.ScheduledBreakMinutes)
	if err := row.Scan(&sh.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "Shift", sh.ShiftID)
	}
	return sh, nil
}

func (r *shiftRepo) Delete(ctx context.Context, clientID, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM shifts WHERE shift_id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return apperrors.Infra("delete shift", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("Shift", id)
	}
	return nil
}

func (r *shiftRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Shift], error) {
	page = page.Normalize(200)
	var out []*domain.Shift
	err := r.tx.SelectContext(ctx, &out, `SELECT * FROM shifts WHERE client_id = $1 ORDER BY shift_id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	if err != nil {
		return storage.ListResult[*domain.Shift]{}, apperrors.Infra("list shifts", err)
	}
	total, err := r.Count(ctx, clientID)
	if err != nil {
		return storage.ListResult[*domain.Shift]{}, err
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *shiftRepo) Count(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.tx.GetContext(ctx, &n, `SELECT count(*) FROM shifts WHERE client_id = $1`, clientID); err != nil {
		return 0, apperrors.Infra("count shifts", err)
	}
	return n, nil
}

type employeeRepo struct{ tx *sqlx.Tx }

func (r *employeeRepo) Get(ctx context.Context, employeeID string) (*domain.Employee, error) {
	var e domain.Employee
	err := r.tx.GetContext(ctx, &e, `SELECT * FROM employees WHERE employee_id = $1`, employeeID)
	if err != nil {
		return nil, notFoundOrInfra(err, "Employee", employeeID)
	}
	return &e, nil
}

func (r *employeeRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Employee], error) {
	page = page.Normalize(200)
	const q = `SELECT e.* FROM employees e
		WHERE (e.client_id = $1) OR (e.is_floating_pool AND EXISTS (
			SELECT 1 FROM employee_assignments a
			WHERE a.employee_id = e.employee_id AND a.client_id = $1
			AND a.valid_from <= now() AND (a.valid_until IS NULL OR a.valid_until >= now())
		))
		ORDER BY e.employee_id LIMIT $2 OFFSET $3`
	var out []*domain.Employee
	if err := r.tx.SelectContext(ctx, &out, q, clientID, page.Limit, page.Offset); err != nil {
		return storage.ListResult[*domain.Employee]{}, apperrors.Infra("list employees", err)
	}
	var total int64
	const countQ = `SELECT count(*) FROM employees e
		WHERE (e.client_id = $1) OR (e.is_floating_pool AND EXISTS (
			SELECT 1 FROM employee_assignments a
			WHERE a.employee_id = e.employee_id AND a.client_id = $1
			AND a.valid_from <= now() AND (a.valid_until IS NULL OR a.valid_until >= now())
		))`
	if err := r.tx.GetContext(ctx, &total, countQ, clientID); err != nil {
		return storage.ListResult[*domain.Employee]{}, apperrors.Infra("count employees", err)
	}
	return storage.NewListResult(out, total, page.Limit, page.Offset), nil
}

func (r *employeeRepo) Create(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	const q = `INSERT INTO employees (employee_id, client_id, code, name, active, is_floating_pool, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, e.EmployeeID, e.ClientID, e.Code, e.Name, e.Active, e.IsFloatingPool)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "employee_id", e.EmployeeID)
	}
	return e, nil
}

func (r *employeeRepo) Update(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	const q = `UPDATE employees SET client_id = $2, code = $3, name = $4, active = $5, is_floating_pool = $6, updated_at = now()
		WHERE employee_id = $1 RETURNING updated_at`
	row := r.tx.QueryRowContext(ctx, q, e.EmployeeID, e.ClientID, e.Code, e.Name, e.Active, e.IsFloatingPool)
	if err := row.Scan(&e.UpdatedAt); err != nil {
		return nil, notFoundOrInfra(err, "Employee", e.EmployeeID)
	}
	return e, nil
}

type assignmentRepo struct{ tx *sqlx.Tx }

func (r *assignmentRepo) ActiveFor(ctx context.Context, employeeID, clientID string) (*domain.EmployeeAssignment, error) {
	const q = `SELECT * FROM employee_assignments WHERE employee_id = $1 AND client_id = $2
		AND valid_from <= now() AND (valid_until IS NULL OR valid_until >= now())
		ORDER BY valid_from DESC LIMIT 1`
	var a domain.EmployeeAssignment
	if err := r.tx.GetContext(ctx, &a, q, employeeID, clientID); err != nil {
		return nil, notFoundOrInfra(err, "EmployeeAssignment", employeeID+"/"+clientID)
	}
	return &a, nil
}

func (r *assignmentRepo) Create(ctx context.Context, a *domain.EmployeeAssignment) (*domain.EmployeeAssignment, error) {
	const q = `INSERT INTO employee_assignments (assignment_id, employee_id, client_id, valid_from, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, a.AssignmentID, a.EmployeeID, a.ClientID, a.ValidFrom, a.ValidUntil)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "assignment_id", a.AssignmentID)
	}
	return a, nil
}

type defectTypeRepo struct{ tx *sqlx.Tx }

func (r *defectTypeRepo) Get(ctx context.Context, id string) (*domain.DefectType, error) {
	var d domain.DefectType
	if err := r.tx.GetContext(ctx, &d, `SELECT * FROM defect_types WHERE defect_type_id = $1`, id); err != nil {
		return nil, notFoundOrInfra(err, "DefectType", id)
	}
	return &d, nil
}

func (r *defectTypeRepo) List(ctx context.Context, clientID string) ([]*domain.DefectType, error) {
	var out []*domain.DefectType
	err := r.tx.SelectContext(ctx, &out,
		`SELECT * FROM defect_types WHERE client_id IS NULL OR client_id = $1 ORDER BY defect_type_id`, clientID)
	if err != nil {
		return nil, apperrors.Infra("list defect types", err)
	}
	return out, nil
}

func (r *defectTypeRepo) Create(ctx context.Context, d *domain.DefectType) (*domain.DefectType, error) {
	const q = `INSERT INTO defect_types (defect_type_id, client_id, name, category, default_severity, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, d.DefectTypeID, d.ClientID, d.Name, d.Category, d.DefaultSeverity, d.Active)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, translateWriteErr(err, "defect_type_id", d.DefectTypeID)
	}
	return d, nil
}

type partOpportunitiesRepo struct{ tx *sqlx.Tx }

func (r *partOpportunitiesRepo) Get(ctx context.Context, clientID, productID string) (*domain.PartOpportunities, error) {
	var p domain.PartOpportunities
	err := r.tx.GetContext(ctx, &p, `SELECT * FROM part_opportunities WHERE client_id = $1 AND product_id = $2`, clientID, productID)
	if err != nil {
		return nil, notFoundOrInfra(err, "PartOpportunities", productID)
	}
	return &p, nil
}

func (r *partOpportunitiesRepo) Upsert(ctx context.Context, p *domain.PartOpportunities) (*domain.PartOpportunities, error) {
	const q = `INSERT INTO part_opportunities (product_id, client_id, opportunities_per_unit, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (client_id, product_id) DO UPDATE SET opportunities_per_unit = EXCLUDED.opportunities_per_unit, updated_at = now()
		RETURNING created_at, updated_at`
	row := r.tx.QueryRowContext(ctx, q, p.ProductID, p.ClientID, p.OpportunitiesPerUnit)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, apperrors.Infra("upsert part opportunities", err)
	}
	return p, nil
}
