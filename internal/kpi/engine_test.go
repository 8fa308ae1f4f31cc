package kpi

import (
	"context"
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/assert"
)

func setupEngine(t *testing.T) (*Engine, *memory.Store, tenant.Context) {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	ideal := 2.0
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "SKU1", IdealCycleTimeMinutes: &ideal})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{"CL1"}}, "CL1")
	require.NoError(t, err)

	e := New(s, NewCache(5*time.Minute), nil, nil)
	return e, s, tc
}

func TestEngineEfficiencyUsesMasterCycleTime(t *testing.T) {
	e, s, tc := setupEngine(t)
	ctx := context.Background()
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.ProductionEntries.Create(ctx, &domain.ProductionEntry{
		EntryID: "PE1", ClientID: "CL1", ProductID: "P1", ShiftID: "S1",
		ProductionDate: day, UnitsProduced: 100, RunTimeHours: 4,
	})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	window := Window{From: day.AddDate(0, 0, -1), To: day.AddDate(0, 0, 1)}
	r, err := e.Efficiency(ctx, tc, window, Filter{})
	require.NoError(t, err)
	require.NotNil(t, r.Value)
	// standard hours = 100*2/60 = 3.333; available = 4-0 = 4 -> 83.33%
	assert.InDelta(t, 83.33, *r.Value, 0.1)
}

func TestEngineCacheServesRepeatCalls(t *testing.T) {
	e, s, tc := setupEngine(t)
	ctx := context.Background()
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.ProductionEntries.Create(ctx, &domain.ProductionEntry{
		EntryID: "PE2", ClientID: "CL1", ProductID: "P1", ShiftID: "S1",
		ProductionDate: day, UnitsProduced: 50, RunTimeHours: 2,
	})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	window := Window{From: day.AddDate(0, 0, -1), To: day.AddDate(0, 0, 1)}
	r1, err := e.Efficiency(ctx, tc, window, Filter{})
	require.NoError(t, err)
	r2, err := e.Efficiency(ctx, tc, window, Filter{})
	require.NoError(t, err)
	assert.Equal(t, *r1.Value, *r2.Value)
}

func TestEnginePPMNoDataWhenNothingInspected(t *testing.T) {
	e, _, tc := setupEngine(t)
	ctx := context.Background()
	window := Window{From: time.Now().AddDate(0, 0, -7), To: time.Now()}
	r, err := e.PPM(ctx, tc, window, Filter{})
	require.NoError(t, err)
	assert.Nil(t, r.Value)
	assert.Equal(t, ReasonNoData, r.Reason)
}

func TestEngineWIPAging(t *testing.T) {
	e, s, tc := setupEngine(t)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.WorkOrders.Create(ctx, &domain.WorkOrder{WorkOrderID: "WO1", ClientID: "CL1", Status: domain.StatusInWIP})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	buckets, err := e.WIPAging(ctx, tc, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, buckets.Bucket0To7)
}
