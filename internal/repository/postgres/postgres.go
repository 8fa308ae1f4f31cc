// Package postgres implements repository.Backend over PostgreSQL: plain SQL
// against *sql.DB/*sql.Tx, using the jmoiron/sqlx convenience layer for
// struct scanning.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// Store is a PostgreSQL-backed repository.Backend.
type Store struct {
	db *sqlx.DB
}

// Open establishes a PostgreSQL connection pool and verifies connectivity,
// grounded on internal/platform/database.Open.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.Infra("open postgres", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.Infra("ping postgres", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-opened *sqlx.DB.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for migration tooling.
func (s *Store) DB() *sqlx.DB { return s.db }

// txScope adapts a live *sqlx.Tx to repository.UnitOfWork's committer
// contract: flush appends staged events inside the same transaction and
// commits, rollback discards everything atomically for free since every
// repo method ran against this same transaction.
type txScope struct {
	tx *sqlx.Tx
}

func (s *txScope) flush(ctx context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		if _, err := s.tx.NamedExecContext(ctx, insertEventSQL, e); err != nil {
			_ = s.tx.Rollback()
			return apperrors.Infra("append domain event", err)
		}
	}
	if err := s.tx.Commit(); err != nil {
		return apperrors.Infra("commit transaction", err)
	}
	return nil
}

func (s *txScope) rollback(ctx context.Context) error {
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return apperrors.Infra("rollback transaction", err)
	}
	return nil
}

// Begin opens a real database transaction and wires a Repos bundle whose
// stores all operate against it, so a UnitOfWork's Commit/Rollback maps
// directly onto Postgres's own transaction boundary.
func (s *Store) Begin(ctx context.Context) (*repository.UnitOfWork, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Infra("begin postgres transaction", err)
	}
	sc := &txScope{tx: tx}
	repos := repository.Repos{
		Clients:             &clientRepo{tx: tx},
		Users:               &userRepo{tx: tx},
		Products:             &productRepo{tx: tx},
		Shifts:               &shiftRepo{tx: tx},
		Employees:            &employeeRepo{tx: tx},
		EmployeeAssignments: &assignmentRepo{tx: tx},
		DefectTypes:          &defectTypeRepo{tx: tx},
		PartOpportunities:   &partOpportunitiesRepo{tx: tx},
		WorkOrders:           &workOrderRepo{tx: tx},
		ProductionEntries:   &productionEntryRepo{tx: tx},
		DowntimeEntries:      &downtimeEntryRepo{tx: tx},
		HoldEntries:          &holdEntryRepo{tx: tx},
		AttendanceEntries:   &attendanceEntryRepo{tx: tx},
		QualityEntries:       &qualityEntryRepo{tx: tx},
		Events:               &eventRepo{tx: tx},
	}
	return repository.NewUnitOfWork(repos, sc), nil
}
