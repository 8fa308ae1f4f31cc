// Package repository defines the tenant-scoped repository layer: a
// unit of work owning a transactional scope and a staged-event buffer,
// and per-entity store contracts every backing implementation (Postgres,
// in-memory) satisfies identically.
package repository

import (
	"context"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

// Clients stores Client rows. Clients are never hard-deleted.
type Clients interface {
	Get(ctx context.Context, clientID string) (*domain.Client, error)
	List(ctx context.Context) ([]*domain.Client, error)
	Create(ctx context.Context, c *domain.Client) (*domain.Client, error)
	Deactivate(ctx context.Context, clientID string) error
}

// Users stores User rows, which are not themselves client-scoped (a user
// may be assigned to many clients).
type Users interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByDisplayName(ctx context.Context, name string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) (*domain.User, error)
}

// Products stores Product rows, unique per (client_id, code).
type Products = storage.CRUDStore[*domain.Product]

// Shifts stores Shift rows.
type Shifts = storage.CRUDStore[*domain.Shift]

// Employees stores Employee rows (floating-pool employees carry a nil
// ClientID; scope is resolved through EmployeeAssignments instead).
type Employees interface {
	Get(ctx context.Context, employeeID string) (*domain.Employee, error)
	List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Employee], error)
	Create(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	Update(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
}

// EmployeeAssignments scopes a floating employee to a client for a window.
type EmployeeAssignments interface {
	ActiveFor(ctx context.Context, employeeID, clientID string) (*domain.EmployeeAssignment, error)
	Create(ctx context.Context, a *domain.EmployeeAssignment) (*domain.EmployeeAssignment, error)
}

// DefectTypes stores DefectType rows (nil ClientID = global catalog entry).
type DefectTypes interface {
	Get(ctx context.Context, id string) (*domain.DefectType, error)
	List(ctx context.Context, clientID string) ([]*domain.DefectType, error)
	Create(ctx context.Context, d *domain.DefectType) (*domain.DefectType, error)
}

// PartOpportunities stores defect-opportunity rows keyed by (client, product).
type PartOpportunities interface {
	Get(ctx context.Context, clientID, productID string) (*domain.PartOpportunities, error)
	Upsert(ctx context.Context, p *domain.PartOpportunities) (*domain.PartOpportunities, error)
}

// WorkOrders stores WorkOrder rows with optimistic-locking Update.
type WorkOrders interface {
	Get(ctx context.Context, clientID, id string) (*domain.WorkOrder, error)
	List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.WorkOrder], error)
	ListByStatus(ctx context.Context, clientID string, status domain.WorkOrderStatus) ([]*domain.WorkOrder, error)
	Create(ctx context.Context, w *domain.WorkOrder) (*domain.WorkOrder, error)
	Update(ctx context.Context, w *domain.WorkOrder) (*domain.WorkOrder, error)
}

// ProductionEntries stores ProductionEntry rows.
type ProductionEntries interface {
	storage.CRUDStore[*domain.ProductionEntry]
	ListInWindow(ctx context.Context, clientID string, from, to time.Time) ([]*domain.ProductionEntry, error)
}

// DowntimeEntries stores DowntimeEntry rows.
type DowntimeEntries = storage.CRUDStore[*domain.DowntimeEntry]

// HoldEntries stores HoldEntry rows with optimistic-locking Update.
type HoldEntries interface {
	Get(ctx context.Context, clientID, id string) (*domain.HoldEntry, error)
	ListByWorkOrder(ctx context.Context, clientID, workOrderID string) ([]*domain.HoldEntry, error)
	ListOpen(ctx context.Context, clientID string) ([]*domain.HoldEntry, error)
	Create(ctx context.Context, h *domain.HoldEntry) (*domain.HoldEntry, error)
	Update(ctx context.Context, h *domain.HoldEntry) (*domain.HoldEntry, error)
}

// AttendanceEntries stores AttendanceEntry rows, unique per (employee_id,
// attendance_date, shift_id).
type AttendanceEntries interface {
	storage.CRUDStore[*domain.AttendanceEntry]
	FindDuplicate(ctx context.Context, clientID, employeeID, shiftID string, date time.Time) (*domain.AttendanceEntry, error)
}

// QualityEntries stores QualityEntry rows.
type QualityEntries = storage.CRUDStore[*domain.QualityEntry]

// Events is the append-only EVENT_STORE.
type Events interface {
	Append(ctx context.Context, events []domain.DomainEvent) error
	ListByAggregate(ctx context.Context, aggregateType, aggregateID string) ([]domain.DomainEvent, error)
	Get(ctx context.Context, eventID string) (*domain.DomainEvent, error)
}

// Repos bundles every per-entity store a unit of work exposes.
type Repos struct {
	Clients             Clients
	Users               Users
	Products             Products
	Shifts               Shifts
	Employees            Employees
	EmployeeAssignments EmployeeAssignments
	DefectTypes          DefectTypes
	PartOpportunities   PartOpportunities
	WorkOrders           WorkOrders
	ProductionEntries   ProductionEntries
	DowntimeEntries      DowntimeEntries
	HoldEntries          HoldEntries
	AttendanceEntries   AttendanceEntries
	QualityEntries       QualityEntries
	Events               Events
}

// Backend is implemented by a concrete storage engine (Postgres,
// in-memory) to produce units of work.
type Backend interface {
	Begin(ctx context.Context) (*UnitOfWork, error)
}
