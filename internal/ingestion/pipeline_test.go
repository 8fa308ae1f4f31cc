package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/tenant"
)

func seedProductionFixtures(t *testing.T, s *memory.Store) tenant.Context {
	t.Helper()
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
	return tc
}

func TestStageAcceptsValidProductionRows(t *testing.T) {
	s := memory.New()
	tc := seedProductionFixtures(t, s)
	p := NewPipeline(nil)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)

	csv := "product_id,shift_id,production_date,units_produced,run_time_hours\n" +
		"P1,SHIFT1,2026-07-01,100,8\n" +
		"P1,SHIFT1,01/07/2026,90,7.5\n"

	summary, batch, err := p.Stage(ctx, tc, uow, KindProduction, []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 2, summary.Valid)
	require.Equal(t, 0, summary.Invalid)
	require.NotNil(t, batch)
	require.Len(t, batch.rows, 2)
}

func TestStageRejectsUnresolvedProductFK(t *testing.T) {
	s := memory.New()
	tc := seedProductionFixtures(t, s)
	p := NewPipeline(nil)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)

	csv := "product_id,shift_id,production_date,units_produced,run_time_hours\n" +
		"UNKNOWN,SHIFT1,2026-07-01,100,8\n"

	summary, batch, err := p.Stage(ctx, tc, uow, KindProduction, []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Invalid)
	require.Equal(t, 0, summary.Valid)
	require.Nil(t, batch)
	require.Len(t, summary.Errors, 1)
	require.Contains(t, summary.Errors[0].Reason, "product_id does not resolve")
}

func TestStageAbortsOnMissingRequiredColumn(t *testing.T) {
	s := memory.New()
	tc := seedProductionFixtures(t, s)
	p := NewPipeline(nil)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)

	csv := "product_id,shift_id,production_date,units_produced\nP1,SHIFT1,2026-07-01,100\n"

	_, _, err = p.Stage(ctx, tc, uow, KindProduction, []byte(csv))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required column")
}

func TestStageWarnsOnUnknownColumnWithoutFailing(t *testing.T) {
	s := memory.New()
	tc := seedProductionFixtures(t, s)
	p := NewPipeline(nil)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)

	csv := "product_id,shift_id,production_date,units_produced,run_time_hours,operator_nickname\n" +
		"P1,SHIFT1,2026-07-01,100,8,Bob\n"

	summary, batch, err := p.Stage(ctx, tc, uow, KindProduction, []byte(csv))
	require.NoError(t, err)
	require.NotEmpty(t, summary.Warnings)
	require.True(t, strings.Contains(summary.Warnings[0], "operator_nickname"))
	require.NotNil(t, batch)
}

func TestCommitBatchInsertsRowsAndStagesEvents(t *testing.T) {
	s := memory.New()
	tc := seedProductionFixtures(t, s)
	p := NewPipeline(nil)
	ctx := context.Background()

	readUow, err := s.Begin(ctx)
	require.NoError(t, err)
	csv := "product_id,shift_id,production_date,units_produced,run_time_hours\nP1,SHIFT1,2026-07-01,100,8\n"
	summary, batch, err := p.Stage(ctx, tc, readUow, KindProduction, []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Valid)
	require.NoError(t, readUow.Rollback(ctx))

	writeUow, err := s.Begin(ctx)
	require.NoError(t, err)
	receipt, err := p.CommitBatch(ctx, tc, writeUow, batch)
	require.NoError(t, err)
	require.Equal(t, 1, receipt.Inserted)
	require.NotEmpty(t, receipt.ClientAgent)
	require.Len(t, writeUow.StagedEvents(), 1)

	events, err := writeUow.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventProductionEntryCreated, events[0].EventType)
}
