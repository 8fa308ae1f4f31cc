package facade

import (
	"context"
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/capacity"
	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/eventbus"
	"github.com/manufab-platform/kpi-core/internal/forecast"
	"github.com/manufab-platform/kpi-core/internal/ingestion"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/reporting"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/internal/workflow"
	"github.com/stretchr/testify/require"
)

func newTestFacade(t *testing.T) (*Facade, *memory.Store) {
	t.Helper()
	s := memory.New()
	bus := eventbus.New(eventbus.Config{}, nil, nil)
	wfEngine := workflow.New(workflow.Default(), nil)
	kpiEngine := kpi.New(s, kpi.NewCache(time.Minute), nil, nil)
	forecastSvc := forecast.NewService(kpiEngine)
	capStore := capacity.NewStore(0)
	reportOrch := reporting.NewOrchestrator(kpiEngine)
	issuer := tenant.NewTokenIssuer("test-secret", time.Hour)

	f := New(s, bus, wfEngine, kpiEngine, forecastSvc, capStore, reportOrch, issuer, nil, nil)
	return f, s
}

func TestFacadeLoginSucceedsWithCorrectPassword(t *testing.T) {
	f, s := newTestFacade(t)
	ctx := context.Background()

	hash, err := tenant.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Users.Create(ctx, &domain.User{
		UserID: "U1", DisplayName: "alice", PasswordHash: hash,
		Role: domain.RoleLeader, AssignedClientIDs: []string{"CL1"}, Active: true,
	})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	result, err := f.Login(ctx, "alice", "correct horse battery staple", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, domain.RoleLeader, result.Actor.Role)
}

func TestFacadeLoginRejectsWrongPassword(t *testing.T) {
	f, s := newTestFacade(t)
	ctx := context.Background()

	hash, err := tenant.HashPassword("correct")
	require.NoError(t, err)
	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Users.Create(ctx, &domain.User{
		UserID: "U1", DisplayName: "alice", PasswordHash: hash, Role: domain.RoleLeader, Active: true,
	})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	_, err = f.Login(ctx, "alice", "wrong", "alice")
	require.Error(t, err)
}

func TestFacadeTransitionAppliesValidEdge(t *testing.T) {
	f, s := newTestFacade(t)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC"})
	require.NoError(t, err)
	_, err = uow.Repos.WorkOrders.Create(ctx, &domain.WorkOrder{
		WorkOrderID: "WO1", ClientID: "CL1", Status: domain.StatusReceived,
	})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{"CL1"}}, "CL1")
	require.NoError(t, err)

	wo, err := f.Transition(ctx, tc, "WO1", domain.StatusDispatched, "release to floor")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDispatched, wo.Status)
}

func TestFacadeHealthCheckPassesOnFreshStore(t *testing.T) {
	f, _ := newTestFacade(t)
	require.NoError(t, f.HealthCheck(context.Background()))
}

func TestFacadeIngestStageThenCommitInsertsRows(t *testing.T) {
	f, s := newTestFacade(t)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: "CL1", DisplayName: "Plant", Timezone: "UTC", Active: true})
	require.NoError(t, err)
	_, err = uow.Repos.Products.Create(ctx, &domain.Product{ProductID: "P1", ClientID: "CL1", Code: "WIDGET"})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleOperator, AllowedClientIDs: []string{"CL1"}}, "CL1")
	require.NoError(t, err)

	csv := "product_id,shift_id,production_date,units_produced,run_time_hours\nP1,SHIFT1,2026-07-01,100,8\n"
	summary, batch, err := f.IngestStage(ctx, tc, ingestion.KindProduction, []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Valid)
	require.NotNil(t, batch)

	receipt, err := f.IngestCommit(ctx, tc, batch)
	require.NoError(t, err)
	require.Equal(t, 1, receipt.Inserted)
}
