package capacity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseBottleneckWorkbook() *Workbook {
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	w := &Workbook{
		Orders: []Order{{OrderID: "O1", ProductCode: "WIDGET", Qty: 600}},
		MasterCalendar: []CalendarDay{
			{Date: day, IsWorking: true, HoursAvailable: 8},
		},
		ProductionLines: []ProductionLine{
			{LineID: "L1", Active: true, CapacityUnitsPerHour: 100},
		},
		ProductionStandards: []ProductionStandard{
			{LineID: "L1", ProductCode: "WIDGET", CycleTimeMinutes: 1},
		},
		ProductionSchedule: []ScheduleEntry{
			{OrderID: "O1", LineID: "L1", StartDate: day, EndDate: day, CommittedQty: 600},
		},
	}
	RunComponentCheck(w)
	RunCapacityAnalysis(w)
	return w
}

func TestApplyScenarioOvertimeReducesBottleneck(t *testing.T) {
	base := baseBottleneckWorkbook()
	shadow, delta, err := ApplyScenario(base, WhatIfScenario{
		Type:   ScenarioOvertime,
		Params: map[string]any{"extra_hours_pct": 1.0}, // double available hours
	})
	require.NoError(t, err)
	assert.False(t, shadow.CapacityAnalysis[0].BottleneckFlag)
	assert.Less(t, delta.BottleneckChange, 0)
}

func TestApplyScenarioSubcontractImprovesFeasibility(t *testing.T) {
	base := &Workbook{
		Orders: []Order{{OrderID: "O1", ProductCode: "WIDGET", Qty: 10}},
		BOM:    []BOMLine{{ProductCode: "WIDGET", ComponentCode: "SCREW", QtyPerUnit: 1}},
		StockSnapshot: []StockSnapshotRow{
			{ComponentCode: "SCREW", OnHand: 2},
		},
	}
	RunComponentCheck(base)
	RunCapacityAnalysis(base)
	require.False(t, base.ComponentCheck[0].Feasible)

	shadow, delta, err := ApplyScenario(base, WhatIfScenario{
		Type:   ScenarioSubcontract,
		Params: map[string]any{"component_code": "SCREW", "additional_qty": 100.0},
	})
	require.NoError(t, err)
	assert.True(t, shadow.ComponentCheck[0].Feasible)
	assert.Equal(t, 1, delta.FeasibilityChange)
}

func TestApplyScenarioMultiConstraintLayersDeltas(t *testing.T) {
	base := baseBottleneckWorkbook()
	shadow, _, err := ApplyScenario(base, WhatIfScenario{
		Type: ScenarioMultiConstraint,
		Params: map[string]any{
			"layers": []WhatIfScenario{
				{Type: ScenarioOvertime, Params: map[string]any{"extra_hours_pct": 1.0}},
			},
		},
	})
	require.NoError(t, err)
	assert.False(t, shadow.CapacityAnalysis[0].BottleneckFlag)
}

func TestApplyScenarioUnknownTypeReturnsValidationError(t *testing.T) {
	base := baseBottleneckWorkbook()
	_, _, err := ApplyScenario(base, WhatIfScenario{Type: "NOT_A_TYPE"})
	require.Error(t, err)
}

func TestApplyScenarioDoesNotMutateBase(t *testing.T) {
	base := baseBottleneckWorkbook()
	originalHours := base.MasterCalendar[0].HoursAvailable
	_, _, err := ApplyScenario(base, WhatIfScenario{
		Type:   ScenarioThreeShift,
		Params: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, originalHours, base.MasterCalendar[0].HoursAvailable)
}
