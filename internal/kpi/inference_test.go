package kpi

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHistoricalEntries(t *testing.T, s *memory.Store, asOf time.Time, samples []float64) {
	t.Helper()
	ctx := context.Background()
	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "SKU1"})
	require.NoError(t, err)
	for i, m := range samples {
		_, err = uow.Repos.ProductionEntries.Create(ctx, &domain.ProductionEntry{
			EntryID: fmt.Sprintf("PE%d", i), ClientID: "CL1", ProductID: "P1", ShiftID: "S1",
			ProductionDate: asOf.AddDate(0, 0, -1), UnitsProduced: 10, RunTimeHours: 1,
			ActualCycleTimeMinutes: m,
		})
		require.NoError(t, err)
	}
	_, err = uow.Commit(ctx)
	require.NoError(t, err)
}

func TestInferCycleTimeFallsBackToHistoricalMedian(t *testing.T) {
	s := memory.New()
	asOf := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedHistoricalEntries(t, s, asOf, []float64{1, 2, 3, 4, 5})

	readUow, err := s.Begin(context.Background())
	require.NoError(t, err)
	ct, err := inferCycleTime(context.Background(), readUow.Repos, "CL1", "P1", "", nil, asOf)
	require.NoError(t, err)
	assert.Equal(t, SourceMedianHist, ct.Source)
	assert.Equal(t, 3.0, ct.Minutes)
}

func TestInferCycleTimeFallsBackToHistoricalMeanBelowMedianThreshold(t *testing.T) {
	s := memory.New()
	asOf := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedHistoricalEntries(t, s, asOf, []float64{2, 4, 6}) // 3 samples: below median's 5, at mean's 3

	readUow, err := s.Begin(context.Background())
	require.NoError(t, err)
	ct, err := inferCycleTime(context.Background(), readUow.Repos, "CL1", "P1", "", nil, asOf)
	require.NoError(t, err)
	assert.Equal(t, SourceMeanHist, ct.Source)
	assert.Equal(t, 4.0, ct.Minutes)
}

func TestInferCycleTimeFallsBackToDefaultBelowMeanThreshold(t *testing.T) {
	s := memory.New()
	asOf := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedHistoricalEntries(t, s, asOf, []float64{2, 4}) // 2 samples: below mean's 3

	readUow, err := s.Begin(context.Background())
	require.NoError(t, err)
	ct, err := inferCycleTime(context.Background(), readUow.Repos, "CL1", "P1", "", nil, asOf)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, ct.Source)
	assert.Equal(t, defaultCycleTime, ct.Minutes)
}

func TestInferCycleTimePrefersProductMasterOverHistory(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	asOf := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	ideal := 9.0
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "SKU1", IdealCycleTimeMinutes: &ideal})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	readUow, err := s.Begin(ctx)
	require.NoError(t, err)
	ct, err := inferCycleTime(ctx, readUow.Repos, "CL1", "P1", "", nil, asOf)
	require.NoError(t, err)
	assert.Equal(t, SourceMaster, ct.Source)
	assert.Equal(t, 9.0, ct.Minutes)
}

func TestInferCycleTimeExcludesSelfEntryFromHistoricalWindow(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	asOf := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedHistoricalEntries(t, s, asOf, []float64{1, 2, 3}) // PE0, PE1, PE2 — mean of 3 samples

	readUow, err := s.Begin(ctx)
	require.NoError(t, err)
	// Excluding PE2 (value 3) from its own window leaves only 2 samples,
	// below meanMinSamples, so the chain falls all the way to DEFAULT.
	ct, err := inferCycleTime(ctx, readUow.Repos, "CL1", "P1", "PE2", nil, asOf)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, ct.Source)
}

func TestInferCycleTimeExcludesOpenWorkOrderEntries(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	asOf := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "SKU1"})
	require.NoError(t, err)
	_, err = uow.Repos.WorkOrders.Create(ctx, &domain.WorkOrder{WorkOrderID: "WO-CLOSED", ClientID: "CL1", Status: domain.StatusClosed})
	require.NoError(t, err)
	_, err = uow.Repos.WorkOrders.Create(ctx, &domain.WorkOrder{WorkOrderID: "WO-OPEN", ClientID: "CL1", Status: domain.StatusInWIP})
	require.NoError(t, err)

	closedWO := "WO-CLOSED"
	openWO := "WO-OPEN"
	samples := []float64{1, 2, 3, 4, 5}
	for i, m := range samples {
		wo := &closedWO
		if i%2 == 1 {
			wo = &openWO
		}
		_, err = uow.Repos.ProductionEntries.Create(ctx, &domain.ProductionEntry{
			EntryID: fmt.Sprintf("PE%d", i), ClientID: "CL1", ProductID: "P1", ShiftID: "S1",
			WorkOrderID: wo, ProductionDate: asOf.AddDate(0, 0, -1), UnitsProduced: 10, RunTimeHours: 1,
			ActualCycleTimeMinutes: m,
		})
		require.NoError(t, err)
	}
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	readUow, err := s.Begin(ctx)
	require.NoError(t, err)
	// Only the 3 CLOSED-work-order entries (indices 0, 2, 4: values 1, 3, 5)
	// are eligible samples — below medianMinSamples but at meanMinSamples.
	ct, err := inferCycleTime(ctx, readUow.Repos, "CL1", "P1", "", nil, asOf)
	require.NoError(t, err)
	assert.Equal(t, SourceMeanHist, ct.Source)
	assert.Equal(t, 3.0, ct.Minutes)
}
