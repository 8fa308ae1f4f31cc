package capacity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapacityAnalysisFlagsBottleneck(t *testing.T) {
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

	rows := RunCapacityAnalysis(w)
	require.Len(t, rows, 1)
	// demand = 600 units * 1 min / 60 = 10 hours, available = 8 -> utilization > 1
	assert.True(t, rows[0].BottleneckFlag)
	assert.InDelta(t, 125.0, rows[0].UtilizationPct, 0.01)
}

func TestRunCapacityAnalysisSkipsInactiveLinesAndNonWorkingDays(t *testing.T) {
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	w := &Workbook{
		MasterCalendar: []CalendarDay{{Date: day, IsWorking: false, HoursAvailable: 0}},
		ProductionLines: []ProductionLine{{LineID: "L1", Active: false}},
	}
	rows := RunCapacityAnalysis(w)
	assert.Empty(t, rows)
}
