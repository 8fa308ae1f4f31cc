package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// SeriesFunc evaluates one KPI over one day's window, mirroring the
// Engine methods in internal/kpi that take (ctx, tc, window, filter).
type SeriesFunc func(ctx context.Context, tc tenant.Context, window kpi.Window, filter kpi.Filter) (kpi.Result, error)

// Service projects a daily KPI history forward using Run, pulling the
// history itself from internal/kpi's Engine one day at a time.
type Service struct {
	engine *kpi.Engine
	series map[string]SeriesFunc
}

// NewService wires the supported KPI names to their Engine evaluators.
// Stage-scoped (FPY) and multi-return (Absenteeism) KPIs are deliberately
// excluded — they need a richer input than a single scalar time series.
func NewService(engine *kpi.Engine) *Service {
	return &Service{
		engine: engine,
		series: map[string]SeriesFunc{
			"EFFICIENCY":   engine.Efficiency,
			"PPM":          engine.PPM,
			"DPMO":         engine.DPMO,
			"RTY":          engine.RTY,
			"AVAILABILITY": engine.Availability,
			"PERFORMANCE":  engine.Performance,
			"OEE":          engine.OEE,
			"OTD":          engine.OTD,
		},
	}
}

// ForecastKPI builds a daily series over the trailing historyDays (ending
// at asOf) for the named KPI, then runs Run over it for forecastDays.
// Days with a NO_DATA result are skipped when building the series; if
// too few days have data the series itself falls through to Run's own
// INSUFFICIENT_HISTORY handling.
func (s *Service) ForecastKPI(ctx context.Context, tc tenant.Context, kpiName string, asOf time.Time, historyDays, forecastDays int, filter kpi.Filter) (Forecast, error) {
	eval, ok := s.series[kpiName]
	if !ok {
		return Forecast{}, apperrors.Validation("kpi_name", fmt.Sprintf("%q is not forecastable", kpiName))
	}

	values := make([]float64, 0, historyDays)
	for i := historyDays; i >= 1; i-- {
		dayEnd := asOf.AddDate(0, 0, -i+1)
		dayStart := dayEnd.AddDate(0, 0, -1)
		window := kpi.Window{From: dayStart, To: dayEnd}
		r, err := eval(ctx, tc, window, filter)
		if err != nil {
			return Forecast{}, err
		}
		if r.Value == nil {
			continue
		}
		values = append(values, *r.Value)
	}

	return Run(values, forecastDays), nil
}
