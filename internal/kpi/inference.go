package kpi

import (
	"context"
	"sort"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository"
)

const (
	historyWindowDays = 90
	medianMinSamples  = 5
	meanMinSamples    = 3
	defaultCycleTime  = 0.25
)

// CycleTime is the resolved ideal cycle time for a production entry, along
// with the provenance tag required on every result.
type CycleTime struct {
	Minutes float64
	Source  Source
}

// inferCycleTime resolves the missing-cycle-time chain: product master,
// then work-order override, then historical median (min 5 samples over the
// trailing 90 days), then historical mean (min 3 samples), then the global
// default flagged as inferred. selfEntryID excludes the entry currently
// being evaluated from its own historical sample window; historical
// samples are further restricted to entries whose work order has reached
// CLOSED — entries with no work order at all (standalone production runs)
// carry no status to check and are kept eligible.
func inferCycleTime(ctx context.Context, repos repository.Repos, clientID, productID, selfEntryID string, workOrder *domain.WorkOrder, asOf time.Time) (CycleTime, error) {
	if product, err := repos.Products.Get(ctx, clientID, productID); err == nil {
		if product.IdealCycleTimeMinutes != nil {
			return CycleTime{Minutes: *product.IdealCycleTimeMinutes, Source: SourceMaster}, nil
		}
	}
	if workOrder != nil && workOrder.IdealCycleTimeMinutes != nil {
		return CycleTime{Minutes: *workOrder.IdealCycleTimeMinutes, Source: SourceWorkOrder}, nil
	}

	from := asOf.AddDate(0, 0, -historyWindowDays)
	entries, err := repos.ProductionEntries.ListInWindow(ctx, clientID, from, asOf)
	if err != nil {
		return CycleTime{}, err
	}
	var samples []float64
	for _, e := range entries {
		if e.ProductID != productID || e.ActualCycleTimeMinutes <= 0 {
			continue
		}
		if selfEntryID != "" && e.EntryID == selfEntryID {
			continue
		}
		if e.WorkOrderID != nil {
			wo, err := repos.WorkOrders.Get(ctx, clientID, *e.WorkOrderID)
			if err != nil || wo.Status != domain.StatusClosed {
				continue
			}
		}
		samples = append(samples, e.ActualCycleTimeMinutes)
	}
	sort.Float64s(samples)

	if len(samples) >= medianMinSamples {
		return CycleTime{Minutes: median(samples), Source: SourceMedianHist}, nil
	}
	if len(samples) >= meanMinSamples {
		return CycleTime{Minutes: mean(samples), Source: SourceMeanHist}, nil
	}
	return CycleTime{Minutes: defaultCycleTime, Source: SourceDefault}, nil
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
