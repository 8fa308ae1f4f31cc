package kpi

import (
	"context"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/pkg/logger"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

const allEntriesPage = 1000

// Engine evaluates the ten KPI formulas and the OEE composite over
// committed rows. It mutates nothing — every method opens a read scope on
// the backend and rolls it back once data is gathered, so every value is
// derived and computed on demand rather than stored.
type Engine struct {
	backend              repository.Backend
	cache                *Cache
	log                  *logger.Logger
	defaultLeadTimeDays  int
	allowOverPerformance map[string]bool
}

// New builds an Engine. allowOverPerformance maps client_id to the
// allow_over_performance tenant flag (Open Question #2); absent entries
// default to false (Performance capped at 100%).
func New(backend repository.Backend, cache *Cache, log *logger.Logger, allowOverPerformance map[string]bool) *Engine {
	if log == nil {
		log = logger.NewDefault("kpi")
	}
	if allowOverPerformance == nil {
		allowOverPerformance = map[string]bool{}
	}
	return &Engine{backend: backend, cache: cache, log: log, defaultLeadTimeDays: 14, allowOverPerformance: allowOverPerformance}
}

func (e *Engine) readScope(ctx context.Context) (repository.Repos, func(), error) {
	uow, err := e.backend.Begin(ctx)
	if err != nil {
		return repository.Repos{}, nil, err
	}
	return uow.Repos, func() { _ = uow.Rollback(ctx) }, nil
}

func matchesProduction(p *domain.ProductionEntry, f Filter) bool {
	if f.ShiftID != "" && p.ShiftID != f.ShiftID {
		return false
	}
	if f.ProductID != "" && p.ProductID != f.ProductID {
		return false
	}
	if f.WorkOrderID != "" && (p.WorkOrderID == nil || *p.WorkOrderID != f.WorkOrderID) {
		return false
	}
	return true
}

func (e *Engine) downtimeHours(ctx context.Context, repos repository.Repos, clientID string, window Window) (float64, error) {
	list, err := repos.DowntimeEntries.List(ctx, clientID, storage.Pagination{Limit: allEntriesPage})
	if err != nil {
		return 0, err
	}
	var hours float64
	for _, d := range list.Items {
		if d.StartAt.Before(window.From) || d.StartAt.After(window.To) {
			continue
		}
		asOf := window.To
		if d.EndAt != nil && d.EndAt.Before(asOf) {
			asOf = *d.EndAt
		}
		hours += d.DurationMinutes(asOf) / 60
	}
	return hours, nil
}

// WIPAging buckets every open (non-terminal) work order by age in days.
// Unlike the other KPIs it is not cached: it reflects "now", not a fixed
// historical window, so a time-keyed cache entry would go stale within
// seconds.
func (e *Engine) WIPAging(ctx context.Context, tc tenant.Context, asOf time.Time) (AgingBuckets, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return AgingBuckets{}, err
	}
	repos, done, err := e.readScope(ctx)
	if err != nil {
		return AgingBuckets{}, err
	}
	defer done()

	var open []*domain.WorkOrder
	for _, status := range []domain.WorkOrderStatus{
		domain.StatusReceived, domain.StatusDispatched, domain.StatusInWIP, domain.StatusOnHold,
	} {
		byStatus, err := repos.WorkOrders.ListByStatus(ctx, clientID, status)
		if err != nil {
			return AgingBuckets{}, err
		}
		open = append(open, byStatus...)
	}
	return wipAging(open, asOf), nil
}

// Efficiency computes standard_hours_produced/hours_available, capped at
// 150%, inferring each production entry's ideal cycle time via the §4.7
// chain.
func (e *Engine) Efficiency(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	return e.cache.Through("efficiency", clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()

		entries, err := repos.ProductionEntries.ListInWindow(ctx, clientID, window.From, window.To)
		if err != nil {
			return Result{}, err
		}
		var standardMinutes, runTime float64
		for _, p := range entries {
			if !matchesProduction(p, filter) {
				continue
			}
			var wo *domain.WorkOrder
			if p.WorkOrderID != nil {
				wo, _ = repos.WorkOrders.Get(ctx, clientID, *p.WorkOrderID)
			}
			ct, err := inferCycleTime(ctx, repos, clientID, p.ProductID, p.EntryID, wo, p.ProductionDate)
			if err != nil {
				return Result{}, err
			}
			standardMinutes += float64(p.UnitsProduced) * ct.Minutes
			runTime += p.RunTimeHours
		}
		downtime, err := e.downtimeHours(ctx, repos, clientID, window)
		if err != nil {
			return Result{}, err
		}
		return efficiency(standardMinutes, runTime, downtime), nil
	})
}

// PPM computes parts-per-million defects among inspected units.
func (e *Engine) PPM(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	return e.cache.Through("ppm", clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()
		entries, err := repos.ProductionEntries.ListInWindow(ctx, clientID, window.From, window.To)
		if err != nil {
			return Result{}, err
		}
		var defects, inspected int
		for _, p := range entries {
			if !matchesProduction(p, filter) {
				continue
			}
			defects += p.DefectCount
			inspected += p.InspectedUnits()
		}
		return ppm(defects, inspected), nil
	})
}

// DPMO computes defects-per-million-opportunities and the sigma level.
func (e *Engine) DPMO(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	return e.cache.Through("dpmo", clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()
		entries, err := repos.ProductionEntries.ListInWindow(ctx, clientID, window.From, window.To)
		if err != nil {
			return Result{}, err
		}
		var defects, units int
		var opportunitiesPerUnit float64
		seenProduct := false
		for _, p := range entries {
			if !matchesProduction(p, filter) {
				continue
			}
			defects += p.DefectCount
			units += p.UnitsProduced
			if !seenProduct {
				if po, err := repos.PartOpportunities.Get(ctx, clientID, p.ProductID); err == nil {
					opportunitiesPerUnit = po.OpportunitiesPerUnit
					seenProduct = true
				}
			}
		}
		if !seenProduct {
			opportunitiesPerUnit = 1
		}
		return dpmo(defects, units, opportunitiesPerUnit), nil
	})
}

// FPY computes first-pass-yield for a given inspection stage.
func (e *Engine) FPY(ctx context.Context, tc tenant.Context, window Window, filter Filter, stage domain.InspectionStage) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	return e.cache.Through("fpy:"+string(stage), clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()
		quality, err := e.qualityInWindow(ctx, repos, clientID, window, filter, stage)
		if err != nil {
			return Result{}, err
		}
		var passed, total int
		for _, q := range quality {
			passed += q.PassedFirstTime()
			total += q.InspectedQty
		}
		return fpy(passed, total), nil
	})
}

// RTY computes rolled-throughput-yield across INCOMING, IN_PROCESS, FINAL.
func (e *Engine) RTY(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	stages := []domain.InspectionStage{domain.InspectionIncoming, domain.InspectionInProcess, domain.InspectionFinal}
	var stageFPY []float64
	for _, s := range stages {
		r, err := e.FPY(ctx, tc, window, filter, s)
		if err != nil {
			return Result{}, err
		}
		if r.Value == nil {
			continue
		}
		stageFPY = append(stageFPY, *r.Value)
	}
	return rty(stageFPY), nil
}

func (e *Engine) qualityInWindow(ctx context.Context, repos repository.Repos, clientID string, window Window, filter Filter, stage domain.InspectionStage) ([]*domain.QualityEntry, error) {
	list, err := repos.QualityEntries.List(ctx, clientID, storage.Pagination{Limit: allEntriesPage})
	if err != nil {
		return nil, err
	}
	var out []*domain.QualityEntry
	for _, q := range list.Items {
		if q.InspectedAt.Before(window.From) || q.InspectedAt.After(window.To) {
			continue
		}
		if q.InspectionStage != stage {
			continue
		}
		if filter.ProductID != "" && q.ProductID != filter.ProductID {
			continue
		}
		if filter.WorkOrderID != "" && q.WorkOrderID != filter.WorkOrderID {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Availability computes uptime/(uptime+downtime) over attendance-derived
// scheduled hours.
func (e *Engine) Availability(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	return e.cache.Through("availability", clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()
		scheduled, err := e.scheduledHours(ctx, repos, clientID, window, filter)
		if err != nil {
			return Result{}, err
		}
		downtime, err := e.downtimeHours(ctx, repos, clientID, window)
		if err != nil {
			return Result{}, err
		}
		return availability(scheduled, downtime), nil
	})
}

func (e *Engine) scheduledHours(ctx context.Context, repos repository.Repos, clientID string, window Window, filter Filter) (float64, error) {
	list, err := repos.AttendanceEntries.List(ctx, clientID, storage.Pagination{Limit: allEntriesPage})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, a := range list.Items {
		if a.AttendanceDate.Before(window.From) || a.AttendanceDate.After(window.To) {
			continue
		}
		if filter.ShiftID != "" && a.ShiftID != filter.ShiftID {
			continue
		}
		total += a.ScheduledHours
	}
	return total, nil
}

// Performance computes (ideal_cycle_time × units)/run_time_minutes, capped
// per the tenant's allow_over_performance flag.
func (e *Engine) Performance(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	allowOver := e.allowOverPerformance[clientID]
	return e.cache.Through("performance", clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()
		entries, err := repos.ProductionEntries.ListInWindow(ctx, clientID, window.From, window.To)
		if err != nil {
			return Result{}, err
		}
		var weightedMinutes, runTimeHours float64
		var units int
		for _, p := range entries {
			if !matchesProduction(p, filter) {
				continue
			}
			var wo *domain.WorkOrder
			if p.WorkOrderID != nil {
				wo, _ = repos.WorkOrders.Get(ctx, clientID, *p.WorkOrderID)
			}
			ct, err := inferCycleTime(ctx, repos, clientID, p.ProductID, p.EntryID, wo, p.ProductionDate)
			if err != nil {
				return Result{}, err
			}
			weightedMinutes += ct.Minutes * float64(p.UnitsProduced)
			units += p.UnitsProduced
			runTimeHours += p.RunTimeHours
		}
		if units == 0 || runTimeHours <= 0 {
			return empty(ReasonNoData), nil
		}
		avgIdealCycleTime := weightedMinutes / float64(units)
		return performance(avgIdealCycleTime, units, runTimeHours, allowOver), nil
	})
}

// Absenteeism computes unscheduled-absence-hours over scheduled hours, plus
// per-employee Bradford Factors.
func (e *Engine) Absenteeism(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, []BradfordFactor, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, nil, err
	}
	repos, done, err := e.readScope(ctx)
	if err != nil {
		return Result{}, nil, err
	}
	defer done()
	list, err := repos.AttendanceEntries.List(ctx, clientID, storage.Pagination{Limit: allEntriesPage})
	if err != nil {
		return Result{}, nil, err
	}
	var windowed []*domain.AttendanceEntry
	var unscheduled, scheduled float64
	for _, a := range list.Items {
		if a.AttendanceDate.Before(window.From) || a.AttendanceDate.After(window.To) {
			continue
		}
		if filter.ShiftID != "" && a.ShiftID != filter.ShiftID {
			continue
		}
		windowed = append(windowed, a)
		unscheduled += a.UnscheduledAbsenceHours()
		scheduled += a.ScheduledHours
	}
	return absenteeism(unscheduled, scheduled), bradfordFactors(windowed), nil
}

// OEE computes the Availability × Performance × Quality(FPY) composite.
func (e *Engine) OEE(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	a, err := e.Availability(ctx, tc, window, filter)
	if err != nil {
		return Result{}, err
	}
	p, err := e.Performance(ctx, tc, window, filter)
	if err != nil {
		return Result{}, err
	}
	q, err := e.FPY(ctx, tc, window, filter, domain.InspectionFinal)
	if err != nil {
		return Result{}, err
	}
	if a.Value == nil || p.Value == nil || q.Value == nil {
		return empty(ReasonNoData), nil
	}
	return ok(oee(*a.Value, *p.Value, *q.Value)), nil
}

// OTD computes on-time-delivery among delivered work orders in the window.
func (e *Engine) OTD(ctx context.Context, tc tenant.Context, window Window, filter Filter) (Result, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return Result{}, err
	}
	return e.cache.Through("otd", clientID, window, filter, func() (Result, error) {
		repos, done, err := e.readScope(ctx)
		if err != nil {
			return Result{}, err
		}
		defer done()
		list, err := repos.WorkOrders.List(ctx, clientID, storage.Pagination{Limit: allEntriesPage})
		if err != nil {
			return Result{}, err
		}
		var delivered []*domain.WorkOrder
		for _, w := range list.Items {
			if w.ActualDeliveryDate == nil {
				continue
			}
			if w.ActualDeliveryDate.Before(window.From) || w.ActualDeliveryDate.After(window.To) {
				continue
			}
			if filter.WorkOrderID != "" && w.WorkOrderID != filter.WorkOrderID {
				continue
			}
			delivered = append(delivered, w)
		}
		leadTime := func(w *domain.WorkOrder) int {
			if product, err := repos.Products.Get(ctx, clientID, w.StyleCode); err == nil {
				return product.LeadTimeDays
			}
			return e.defaultLeadTimeDays
		}
		return otd(delivered, leadTime, nil), nil
	})
}
