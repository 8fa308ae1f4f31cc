// Package storage provides the generic repository abstractions the
// per-entity stores in internal/repository build on: a tenant-scoped
// CRUD contract, pagination, and filter/sort builders.
package storage

import (
	"context"
	"database/sql"
	"time"
)

// Entity represents a storable entity scoped to a tenant (client). All
// domain types persisted through a CRUDStore implement this.
type Entity interface {
	GetID() string
	GetClientID() string
	SetCreatedAt(time.Time)
	SetUpdatedAt(time.Time)
}

// CRUDStore defines generic CRUD operations for any entity type, scoped
// to the tenant identified by clientID. Per-entity repositories in
// internal/repository implement this over Postgres or an in-memory map.
type CRUDStore[T Entity] interface {
	// Create inserts a new entity and returns it with generated fields populated.
	Create(ctx context.Context, entity T) (T, error)

	// Get retrieves an entity by ID within the given tenant.
	Get(ctx context.Context, clientID, id string) (T, error)

	// Update modifies an existing entity and returns the updated version.
	Update(ctx context.Context, entity T) (T, error)

	// Delete removes an entity by ID within the given tenant.
	Delete(ctx context.Context, clientID, id string) error

	// List returns entities for a tenant with pagination.
	List(ctx context.Context, clientID string, page Pagination) (ListResult[T], error)

	// Count returns the total number of entities for a tenant.
	Count(ctx context.Context, clientID string) (int64, error)
}

// ReadOnlyStore defines read-only operations for entities.
type ReadOnlyStore[T Entity] interface {
	Get(ctx context.Context, clientID, id string) (T, error)
	List(ctx context.Context, clientID string, page Pagination) (ListResult[T], error)
	Count(ctx context.Context, clientID string) (int64, error)
}

// WriteStore defines write operations for entities.
type WriteStore[T Entity] interface {
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, clientID, id string) error
}

// TxStore provides transaction support for stores.
type TxStore interface {
	// BeginTx starts a new transaction, returning a context carrying it.
	BeginTx(ctx context.Context) (context.Context, error)

	// CommitTx commits the transaction carried by ctx.
	CommitTx(ctx context.Context) error

	// RollbackTx rolls back the transaction carried by ctx.
	RollbackTx(ctx context.Context) error

	// WithTx runs fn within a transaction, rolling back on error and
	// committing otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// QueryBuilder helps construct SQL queries with filters.
type QueryBuilder interface {
	Where(condition string, args ...any) QueryBuilder
	OrderBy(column string, desc bool) QueryBuilder
	Limit(n int) QueryBuilder
	Offset(n int) QueryBuilder
	Build() (string, []any)
}

// Scanner abstracts row scanning for database results.
type Scanner interface {
	Scan(dest ...any) error
}

// Querier abstracts database query execution so stores can run either
// against *sql.DB or a transaction carried in ctx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DBProvider provides access to the underlying database connection and
// the context-appropriate Querier (transaction if present, plain pool
// otherwise).
type DBProvider interface {
	DB() *sql.DB
	Querier(ctx context.Context) Querier
}

// Pagination holds pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPagination returns the platform default page size.
func DefaultPagination() Pagination {
	return Pagination{Limit: 50, Offset: 0}
}

// Normalize clamps pagination values to acceptable bounds.
func (p Pagination) Normalize(maxLimit int) Pagination {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult wraps a list response with pagination metadata.
type ListResult[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// NewListResult creates a ListResult from items and pagination info.
func NewListResult[T any](items []T, total int64, limit, offset int) ListResult[T] {
	return ListResult[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	}
}

// Filter represents a query filter condition.
type Filter struct {
	Field    string
	Operator string // =, !=, <, >, <=, >=, LIKE, IN, IS NULL, IS NOT NULL
	Value    any
}

// FilterSet is a collection of filters.
type FilterSet []Filter

func (fs *FilterSet) Add(field, operator string, value any) {
	*fs = append(*fs, Filter{Field: field, Operator: operator, Value: value})
}

func (fs *FilterSet) Eq(field string, value any)      { fs.Add(field, "=", value) }
func (fs *FilterSet) NotEq(field string, value any)    { fs.Add(field, "!=", value) }
func (fs *FilterSet) Like(field, pattern string)       { fs.Add(field, "LIKE", pattern) }
func (fs *FilterSet) In(field string, values any)      { fs.Add(field, "IN", values) }
func (fs *FilterSet) IsNull(field string)              { fs.Add(field, "IS NULL", nil) }
func (fs *FilterSet) IsNotNull(field string)           { fs.Add(field, "IS NOT NULL", nil) }

// SortOrder represents a sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Sort represents a sort specification.
type Sort struct {
	Field string
	Order SortOrder
}

// SortSet is a collection of sort specifications.
type SortSet []Sort

func (ss *SortSet) Add(field string, order SortOrder) { *ss = append(*ss, Sort{Field: field, Order: order}) }
func (ss *SortSet) Asc(field string)                  { ss.Add(field, SortAsc) }
func (ss *SortSet) Desc(field string)                 { ss.Add(field, SortDesc) }

// QueryOptions combines filters, sorting, and pagination.
type QueryOptions struct {
	Filters    FilterSet
	Sorts      SortSet
	Pagination Pagination
}

// NewQueryOptions creates QueryOptions with defaults.
func NewQueryOptions() QueryOptions {
	return QueryOptions{Pagination: DefaultPagination()}
}
