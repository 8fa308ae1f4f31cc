package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/stretchr/testify/require"
)

func seedDailyProduction(t *testing.T, s *memory.Store, days int, asOf time.Time) {
	t.Helper()
	ctx := context.Background()
	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	ideal := 1.0
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "SKU1", IdealCycleTimeMinutes: &ideal})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	for i := days; i >= 1; i-- {
		day := asOf.AddDate(0, 0, -i+1).Add(-12 * time.Hour)
		u, err := s.Begin(ctx)
		require.NoError(t, err)
		_, err = u.Repos.ProductionEntries.Create(ctx, &domain.ProductionEntry{
			EntryID:        "PE" + day.Format("20060102"),
			ClientID:       "CL1",
			ProductID:      "P1",
			ShiftID:        "S1",
			ProductionDate: day,
			UnitsProduced:  100,
			RunTimeHours:   2,
		})
		require.NoError(t, err)
		_, err = u.Commit(ctx)
		require.NoError(t, err)
	}
}

func TestServiceForecastKPIBuildsSeriesFromDailyEfficiency(t *testing.T) {
	s := memory.New()
	asOf := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	seedDailyProduction(t, s, 20, asOf)

	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{"CL1"}}, "CL1")
	require.NoError(t, err)

	engine := kpi.New(s, kpi.NewCache(time.Minute), nil, nil)
	svc := NewService(engine)

	f, err := svc.ForecastKPI(context.Background(), tc, "EFFICIENCY", asOf, 20, 5, kpi.Filter{})
	require.NoError(t, err)
	require.NotEqual(t, insufficientHistory, f.Reason)
	require.Len(t, f.Points, 5)
}

func TestServiceForecastKPIRejectsUnknownName(t *testing.T) {
	s := memory.New()
	engine := kpi.New(s, kpi.NewCache(time.Minute), nil, nil)
	svc := NewService(engine)
	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{"CL1"}}, "CL1")
	require.NoError(t, err)

	_, err = svc.ForecastKPI(context.Background(), tc, "NOT_A_KPI", time.Now(), 20, 5, kpi.Filter{})
	require.Error(t, err)
}
