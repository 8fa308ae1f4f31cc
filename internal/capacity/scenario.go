package capacity

import (
	"fmt"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// ApplyScenario deterministically transforms a shadow copy of the base
// workbook per the scenario's Type and Params, re-runs component check and
// capacity analysis on the shadow, and returns both the shadow and the
// delta against the base. The base
// workbook's ComponentCheck/CapacityAnalysis must already be populated
// (call RunComponentCheck/RunCapacityAnalysis on it first).
func ApplyScenario(base *Workbook, scenario WhatIfScenario) (*Workbook, ScenarioDelta, error) {
	shadow := base.Clone()

	switch scenario.Type {
	case ScenarioOvertime:
		pct := paramFloat(scenario.Params, "extra_hours_pct", 0.2)
		scaleAvailableHours(shadow, 1+pct)
	case ScenarioSetupReduction:
		pct := paramFloat(scenario.Params, "setup_reduction_pct", 0.5)
		reduceSetupTime(shadow, pct)
	case ScenarioSubcontract:
		componentCode, _ := scenario.Params["component_code"].(string)
		qty := paramFloat(scenario.Params, "additional_qty", 0)
		addStock(shadow, componentCode, qty)
	case ScenarioNewLine:
		line := paramLine(scenario.Params)
		shadow.ProductionLines = append(shadow.ProductionLines, line)
	case ScenarioThreeShift:
		scaleAvailableHours(shadow, 3)
	case ScenarioLeadTimeDelay:
		days := int(paramFloat(scenario.Params, "delay_days", 0))
		delayDueDates(shadow, days)
	case ScenarioAbsenteeismSpike:
		pct := paramFloat(scenario.Params, "absence_pct", 0.1)
		scaleAvailableHours(shadow, 1-pct)
	case ScenarioMultiConstraint:
		layers, _ := scenario.Params["layers"].([]WhatIfScenario)
		for _, layer := range layers {
			applied, _, err := ApplyScenario(shadow, layer)
			if err != nil {
				return nil, ScenarioDelta{}, err
			}
			shadow = applied
		}
	default:
		return nil, ScenarioDelta{}, apperrors.Validation("scenario_type", fmt.Sprintf("unknown scenario type %q", scenario.Type))
	}

	RunComponentCheck(shadow)
	RunCapacityAnalysis(shadow)

	delta := computeDelta(base, shadow)
	return shadow, delta, nil
}

func paramFloat(params map[string]any, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

func paramLine(params map[string]any) ProductionLine {
	line := ProductionLine{Active: true}
	if v, ok := params["line_id"].(string); ok {
		line.LineID = v
	}
	if v, ok := params["name"].(string); ok {
		line.Name = v
	}
	line.CapacityUnitsPerHour = paramFloat(params, "capacity_units_per_hour", 0)
	return line
}

func scaleAvailableHours(w *Workbook, factor float64) {
	for i := range w.MasterCalendar {
		if w.MasterCalendar[i].IsWorking {
			w.MasterCalendar[i].HoursAvailable *= factor
		}
	}
}

func reduceSetupTime(w *Workbook, pct float64) {
	for i := range w.ProductionStandards {
		w.ProductionStandards[i].SetupMinutes *= 1 - pct
		w.ProductionStandards[i].CycleTimeMinutes -= w.ProductionStandards[i].SetupMinutes * pct
	}
}

func addStock(w *Workbook, componentCode string, qty float64) {
	for i := range w.StockSnapshot {
		if w.StockSnapshot[i].ComponentCode == componentCode {
			w.StockSnapshot[i].OnHand += qty
			return
		}
	}
	w.StockSnapshot = append(w.StockSnapshot, StockSnapshotRow{ComponentCode: componentCode, OnHand: qty})
}

func delayDueDates(w *Workbook, days int) {
	for i := range w.Orders {
		w.Orders[i].DueDate = w.Orders[i].DueDate.AddDate(0, 0, days)
	}
}

func computeDelta(base, shadow *Workbook) ScenarioDelta {
	baseFeasible := countFeasible(base.ComponentCheck)
	shadowFeasible := countFeasible(shadow.ComponentCheck)

	baseUtil := averageUtilization(base.CapacityAnalysis)
	shadowUtil := averageUtilization(shadow.CapacityAnalysis)

	baseBottlenecks := countBottlenecks(base.CapacityAnalysis)
	shadowBottlenecks := countBottlenecks(shadow.CapacityAnalysis)

	return ScenarioDelta{
		FeasibilityChange: shadowFeasible - baseFeasible,
		UtilizationChange: shadowUtil - baseUtil,
		BottleneckChange:  shadowBottlenecks - baseBottlenecks,
	}
}

func countFeasible(rows []ComponentCheckRow) int {
	n := 0
	for _, r := range rows {
		if r.Feasible {
			n++
		}
	}
	return n
}

func countBottlenecks(rows []CapacityAnalysisRow) int {
	n := 0
	for _, r := range rows {
		if r.BottleneckFlag {
			n++
		}
	}
	return n
}

func averageUtilization(rows []CapacityAnalysisRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.UtilizationPct
	}
	return sum / float64(len(rows))
}
