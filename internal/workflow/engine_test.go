package workflow

import (
	"context"
	"testing"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkOrder(t *testing.T, s *memory.Store, clientID, id string, status domain.WorkOrderStatus) {
	t.Helper()
	ctx := context.Background()
	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	if _, err := uow.Repos.Clients.Get(ctx, clientID); err != nil {
		_, err = uow.Repos.Clients.Create(ctx, &domain.Client{ClientID: clientID, DisplayName: clientID, Timezone: "UTC"})
		require.NoError(t, err)
	}
	_, err = uow.Repos.WorkOrders.Create(ctx, &domain.WorkOrder{WorkOrderID: id, ClientID: clientID, Status: status})
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)
}

func leaderContext(t *testing.T, clientID string) tenant.Context {
	t.Helper()
	tc, err := tenant.Resolve(tenant.Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{clientID}}, clientID)
	require.NoError(t, err)
	return tc
}

func TestTransitionOneAppliesValidEdge(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedWorkOrder(t, s, "CL1", "WO1", domain.StatusReceived)
	tc := leaderContext(t, "CL1")
	e := New(nil, nil)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := e.TransitionOne(ctx, tc, uow, "WO1", domain.StatusDispatched, "dispatch note")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDispatched, w.Status)
	events, err := uow.Commit(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventWorkOrderStatusChanged, events[0].EventType)
}

func TestTransitionOneRejectsInvalidEdge(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedWorkOrder(t, s, "CL2", "WO2", domain.StatusReceived)
	tc := leaderContext(t, "CL2")
	e := New(nil, nil)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = e.TransitionOne(ctx, tc, uow, "WO2", domain.StatusCompleted, "")
	assert.Error(t, err)
}

func TestTransitionBulkSkipsIncompatibleOrders(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedWorkOrder(t, s, "CL3", "WO3A", domain.StatusReceived)
	seedWorkOrder(t, s, "CL3", "WO3B", domain.StatusInWIP)
	tc := leaderContext(t, "CL3")
	e := New(nil, nil)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	result := e.TransitionBulk(ctx, tc, uow, []string{"WO3A", "WO3B"}, domain.StatusDispatched, "")
	assert.Equal(t, []string{"WO3A"}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "WO3B", result.Failed[0].ID)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)
}

func TestHoldAndResumeSingleHoldReturnsToActiveBeforeHold(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedWorkOrder(t, s, "CL4", "WO4", domain.StatusInWIP)
	tc := leaderContext(t, "CL4")
	e := New(nil, nil)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	hold, err := e.Hold(ctx, tc, uow, "WO4", "MATERIAL_SHORTAGE", domain.SeverityHigh, "waiting on fabric")
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	uow2, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := uow2.Repos.WorkOrders.Get(ctx, "CL4", "WO4")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, w.Status)
	assert.Equal(t, domain.StatusInWIP, w.ActiveBeforeHold)

	qty := 10
	_, err = e.Resume(ctx, tc, uow2, hold.HoldID, domain.DispositionRelease, &qty, "supervisor1", "resolved")
	require.NoError(t, err)
	_, err = uow2.Commit(ctx)
	require.NoError(t, err)

	uow3, err := s.Begin(ctx)
	require.NoError(t, err)
	w2, err := uow3.Repos.WorkOrders.Get(ctx, "CL4", "WO4")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInWIP, w2.Status)
}

func TestResumeTieBreaksOnLastOverlappingHold(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedWorkOrder(t, s, "CL5", "WO5", domain.StatusInWIP)
	tc := leaderContext(t, "CL5")
	e := New(nil, nil)

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	hold1, err := e.Hold(ctx, tc, uow, "WO5", "MATERIAL_SHORTAGE", domain.SeverityHigh, "d1")
	require.NoError(t, err)
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	uow2, err := s.Begin(ctx)
	require.NoError(t, err)
	hold2, err := e.Hold(ctx, tc, uow2, "WO5", "QUALITY_ISSUE", domain.SeverityMedium, "d2")
	require.NoError(t, err)
	_, err = uow2.Commit(ctx)
	require.NoError(t, err)

	uow3, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = e.Resume(ctx, tc, uow3, hold1.HoldID, domain.DispositionRework, nil, "sup", "")
	require.NoError(t, err)
	_, err = uow3.Commit(ctx)
	require.NoError(t, err)

	uow4, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := uow4.Repos.WorkOrders.Get(ctx, "CL5", "WO5")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, w.Status, "work order must stay on hold while hold2 is still open")

	_, err = e.Resume(ctx, tc, uow4, hold2.HoldID, domain.DispositionRework, nil, "sup", "")
	require.NoError(t, err)
	_, err = uow4.Commit(ctx)
	require.NoError(t, err)

	uow5, err := s.Begin(ctx)
	require.NoError(t, err)
	w2, err := uow5.Repos.WorkOrders.Get(ctx, "CL5", "WO5")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInWIP, w2.Status, "last hold resuming returns work order to flow")
}
