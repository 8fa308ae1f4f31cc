package reporting

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

func seedClientAndProduction(t *testing.T, s *memory.Store, day time.Time) {
	t.Helper()
	ctx := context.Background()
	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	ideal := 1.0
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "SKU1", IdealCycleTimeMinutes: &ideal})
	require.NoError(t, err)
	_, err = uow.Repos.ProductionEntries.Create(ctx, &domain.ProductionEntry{
		EntryID: "PE1", ClientID: "CL1", ProductID: "P1", ShiftID: "S1",
		ProductionDate: day, UnitsProduced: 100, RunTimeHours: 4,
	})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)
}

func TestOrchestratorGenerateAssemblesAllKPIs(t *testing.T) {
	s := memory.New()
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedClientAndProduction(t, s, day)

	engine := kpi.New(s, kpi.NewCache(time.Minute), nil, nil)
	orch := NewOrchestrator(engine)

	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{"CL1"}}, "CL1")
	require.NoError(t, err)

	window := kpi.Window{From: day.AddDate(0, 0, -1), To: day.AddDate(0, 0, 1)}
	payload, err := orch.Generate(context.Background(), tc, window, KindDaily, kpi.Filter{}, day)
	require.NoError(t, err)

	require.Equal(t, "CL1", payload.ClientID)
	require.NotEmpty(t, payload.KPIs)

	names := map[string]bool{}
	for _, snap := range payload.KPIs {
		names[snap.Name] = true
	}
	require.Contains(t, names, "EFFICIENCY")
	require.Contains(t, names, "WIP_AGING")
}
