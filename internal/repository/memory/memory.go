// Package memory provides an in-memory repository.Backend. It backs unit
// tests and the no-database CLI mode for this module.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository"
)

// Store is an in-memory repository.Backend. All state lives in a single
// mutex-guarded struct; Begin snapshots nothing (writes land directly) but
// tracks staged events per unit of work and supports rollback by undoing
// the recorded mutations.
type Store struct {
	mu sync.Mutex

	clients             map[string]*domain.Client
	users               map[string]*domain.User
	products             map[string]*domain.Product
	shifts               map[string]*domain.Shift
	employees            map[string]*domain.Employee
	assignments          map[string]*domain.EmployeeAssignment
	defectTypes          map[string]*domain.DefectType
	partOpportunities   map[string]*domain.PartOpportunities // key: clientID+"/"+productID
	workOrders           map[string]*domain.WorkOrder
	productionEntries   map[string]*domain.ProductionEntry
	downtimeEntries      map[string]*domain.DowntimeEntry
	holdEntries          map[string]*domain.HoldEntry
	attendanceEntries   map[string]*domain.AttendanceEntry
	qualityEntries       map[string]*domain.QualityEntry
	events               []domain.DomainEvent

	seq int
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		clients:             make(map[string]*domain.Client),
		users:               make(map[string]*domain.User),
		products:             make(map[string]*domain.Product),
		shifts:               make(map[string]*domain.Shift),
		employees:            make(map[string]*domain.Employee),
		assignments:          make(map[string]*domain.EmployeeAssignment),
		defectTypes:          make(map[string]*domain.DefectType),
		partOpportunities:   make(map[string]*domain.PartOpportunities),
		workOrders:           make(map[string]*domain.WorkOrder),
		productionEntries:   make(map[string]*domain.ProductionEntry),
		downtimeEntries:      make(map[string]*domain.DowntimeEntry),
		holdEntries:          make(map[string]*domain.HoldEntry),
		attendanceEntries:   make(map[string]*domain.AttendanceEntry),
		qualityEntries:       make(map[string]*domain.QualityEntry),
	}
}

// NextID returns a monotonically increasing identifier for entities the
// caller does not supply one for; production deployments expect Postgres
// to vend UUIDs (google/uuid), but a predictable sequence keeps in-memory
// tests deterministic.
func (s *Store) NextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("%s-%06d", prefix, s.seq)
}

// mutation undo log entries, used by scope.rollback.
type undoFn func()

type scope struct {
	store  *Store
	undo   []undoFn
}

func (sc *scope) record(u undoFn) { sc.undo = append(sc.undo, u) }

func (sc *scope) flush(ctx context.Context, events []domain.DomainEvent) error {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	sc.store.events = append(sc.store.events, events...)
	return nil
}

func (sc *scope) rollback(ctx context.Context) error {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	for i := len(sc.undo) - 1; i >= 0; i-- {
		sc.undo[i]()
	}
	return nil
}

// Begin opens a unit of work. Because the in-memory store performs writes
// eagerly (no real transaction), each repo method records an inverse
// operation on the active scope so Rollback can undo it.
func (s *Store) Begin(ctx context.Context) (*repository.UnitOfWork, error) {
	sc := &scope{store: s}
	repos := repository.Repos{
		Clients:             &clientRepo{s: s, sc: sc},
		Users:               &userRepo{s: s, sc: sc},
		Products:             &productRepo{s: s, sc: sc},
		Shifts:               &shiftRepo{s: s, sc: sc},
		Employees:            &employeeRepo{s: s, sc: sc},
		EmployeeAssignments: &assignmentRepo{s: s, sc: sc},
		DefectTypes:          &defectTypeRepo{s: s, sc: sc},
		PartOpportunities:   &partOpportunitiesRepo{s: s, sc: sc},
		WorkOrders:           &workOrderRepo{s: s, sc: sc},
		ProductionEntries:   &productionEntryRepo{s: s, sc: sc},
		DowntimeEntries:      &downtimeEntryRepo{s: s, sc: sc},
		HoldEntries:          &holdEntryRepo{s: s, sc: sc},
		AttendanceEntries:   &attendanceEntryRepo{s: s, sc: sc},
		QualityEntries:       &qualityEntryRepo{s: s, sc: sc},
		Events:               &eventRepo{s: s},
	}
	return repository.NewUnitOfWork(repos, sc), nil
}
