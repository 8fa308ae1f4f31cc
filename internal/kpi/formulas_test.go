package kpi

import (
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEfficiencyCapsAt150(t *testing.T) {
	r := efficiency(1000*60, 1, 0) // standard hours way beyond 1 hour available
	assert.NotNil(t, r.Value)
	assert.Equal(t, 150.0, *r.Value)
}

func TestEfficiencyZeroDenominatorReturnsNoData(t *testing.T) {
	r := efficiency(100, 0, 0)
	assert.Nil(t, r.Value)
	assert.Equal(t, ReasonNoData, r.Reason)
}

func TestPerformanceCappedUnlessAllowed(t *testing.T) {
	capped := performance(10, 100, 1, false)
	assert.Equal(t, 100.0, *capped.Value)

	uncapped := performance(10, 100, 1, true)
	assert.Greater(t, *uncapped.Value, 100.0)
}

func TestPPMZeroInspectedReturnsNoData(t *testing.T) {
	r := ppm(5, 0)
	assert.Nil(t, r.Value)
	assert.Equal(t, ReasonNoData, r.Reason)
}

func TestDPMOComputesSigmaLevel(t *testing.T) {
	r := dpmo(3, 1000, 1)
	assert.NotNil(t, r.Value)
	assert.InDelta(t, 3000.0, *r.Value, 0.001)
	assert.Contains(t, r.Detail, "sigma_level")
}

func TestFPYAndRTY(t *testing.T) {
	f1 := fpy(95, 100)
	f2 := fpy(98, 100)
	rtyResult := rty([]float64{*f1.Value, *f2.Value})
	assert.InDelta(t, 95*98/100.0, *rtyResult.Value, 0.001)
}

func TestAvailability(t *testing.T) {
	r := availability(100, 10)
	assert.Equal(t, 90.0, *r.Value)

	zero := availability(0, 10)
	assert.Equal(t, ReasonNoData, zero.Reason)
}

func TestAbsenteeism(t *testing.T) {
	r := absenteeism(8, 80)
	assert.Equal(t, 10.0, *r.Value)
}

func TestWipAgingBuckets(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	orders := []*domain.WorkOrder{
		{WorkOrderID: "A", CreatedAt: now.AddDate(0, 0, -3)},
		{WorkOrderID: "B", CreatedAt: now.AddDate(0, 0, -10)},
		{WorkOrderID: "C", CreatedAt: now.AddDate(0, 0, -20)},
		{WorkOrderID: "D", CreatedAt: now.AddDate(0, 0, -45)},
	}
	b := wipAging(orders, now)
	assert.Equal(t, 1, b.Bucket0To7)
	assert.Equal(t, 1, b.Bucket8To14)
	assert.Equal(t, 1, b.Bucket15To30)
	assert.Equal(t, 1, b.BucketOver30)
}

func TestBradfordFactorGroupsConsecutiveSpells(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	entries := []*domain.AttendanceEntry{
		{EmployeeID: "E1", AttendanceDate: base, Status: domain.AttendanceAbsent, ScheduledHours: 8},
		{EmployeeID: "E1", AttendanceDate: base.AddDate(0, 0, 1), Status: domain.AttendanceAbsent, ScheduledHours: 8},
		{EmployeeID: "E1", AttendanceDate: base.AddDate(0, 0, 10), Status: domain.AttendanceAbsent, ScheduledHours: 8},
	}
	factors := bradfordFactors(entries)
	assert.Len(t, factors, 1)
	assert.Equal(t, 2, factors[0].Spells)
	assert.Equal(t, 3, factors[0].AbsentDays)
	assert.Equal(t, 2*2*3, factors[0].Score)
}

func TestOEEComposesAvailabilityPerformanceQuality(t *testing.T) {
	got := oee(90, 95, 98)
	assert.InDelta(t, 83.79, got, 0.01)
}

func TestOTDTrueFallbackChain(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	delivered := created.AddDate(0, 0, 10)
	w := &domain.WorkOrder{WorkOrderID: "W1", CreatedAt: created, ActualDeliveryDate: &delivered}
	r := otd([]*domain.WorkOrder{w}, func(*domain.WorkOrder) int { return 14 }, nil)
	assert.Equal(t, 100.0, *r.Value)
}
