package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
)

func TestExportProductionRoundTripsThroughIngest(t *testing.T) {
	s := memory.New()
	tc := seedProductionFixtures(t, s)
	p := NewPipeline(nil)
	ctx := context.Background()

	original := []*domain.ProductionEntry{
		{ClientID: "CL1", ProductID: "P1", ShiftID: "SHIFT1", ProductionDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), UnitsProduced: 120, RunTimeHours: 8},
	}

	csvBytes, err := ExportProduction(original)
	require.NoError(t, err)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)

	summary, batch, err := p.Stage(ctx, tc, uow, KindProduction, csvBytes)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Valid)
	require.Equal(t, 0, summary.Invalid)
	require.NotNil(t, batch)
	require.Equal(t, "P1", batch.rows[0].production.ProductID)
	require.Equal(t, 120, batch.rows[0].production.UnitsProduced)
}
