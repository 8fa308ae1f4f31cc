//go:build integration && postgres

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/manufab-platform/kpi-core/internal/domain"
)

// Exercised against a real Postgres instance to confirm the migrations and
// the repository layer agree on schema, unlike internal/repository/memory
// which never touches SQL at all. Skips unless DATABASE_URL is set.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Migrate())

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	client := &domain.Client{ClientID: "CL-IT-1", DisplayName: "Integration Mill", Timezone: "UTC"}
	client, err = uow.Repos.Clients.Create(ctx, client)
	require.NoError(t, err)
	require.True(t, client.Active)

	product := &domain.Product{ProductID: "P-IT-1", ClientID: client.ClientID, Code: "STYLE-1"}
	_, err = uow.Repos.Products.Create(ctx, product)
	require.NoError(t, err)

	wo := &domain.WorkOrder{
		WorkOrderID: "WO-IT-1",
		ClientID:    client.ClientID,
		StyleCode:   "STYLE-1",
		PlannedQty:  100,
		Status:      domain.StatusReceived,
	}
	wo, err = uow.Repos.WorkOrders.Create(ctx, wo)
	require.NoError(t, err)
	require.Equal(t, 1, wo.Version)

	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	uow2, err := store.Begin(ctx)
	require.NoError(t, err)
	defer uow2.Rollback(ctx)

	got, err := uow2.Repos.WorkOrders.Get(ctx, client.ClientID, wo.WorkOrderID)
	require.NoError(t, err)
	require.Equal(t, wo.PlannedQty, got.PlannedQty)
	stale := *got

	got.PlannedQty = 150
	updated, err := uow2.Repos.WorkOrders.Update(ctx, got)
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)

	_, err = uow2.Repos.WorkOrders.Update(ctx, &stale)
	require.Error(t, err)
}
