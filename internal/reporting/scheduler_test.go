package reporting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRenderer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRenderer) RenderPDF(Payload) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return []byte("pdf"), nil
}

func (c *countingRenderer) RenderXLSX(Payload) ([]byte, error) {
	return []byte("xlsx"), nil
}

func (c *countingRenderer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSchedulerFiresDueJobOnceEvenAfterLongOutage(t *testing.T) {
	s := memory.New()
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedClientAndProduction(t, s, day)

	engine := kpi.New(s, kpi.NewCache(time.Minute), nil, nil)
	orch := NewOrchestrator(engine)
	renderer := &countingRenderer{}
	sched := NewScheduler(orch, renderer, nil)

	start := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	err := sched.AddJob(Job{
		ClientID:     "CL1",
		Schedule:     "0 0 * * *", // daily at midnight
		Kind:         KindDaily,
		WindowLength: 24 * time.Hour,
		Actor:        tenant.Actor{UserID: "scheduler", Role: domain.RoleAdmin, AllowedClientIDs: []string{"CL1"}},
	}, start)
	require.NoError(t, err)

	// Jump far past several missed midnights — a real outage scenario.
	muchLater := start.AddDate(0, 0, 10)
	err = sched.Tick(context.Background(), muchLater)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.count(), "a long outage should still fire exactly once on catch-up")

	// Immediately ticking again at the same instant must not re-fire.
	err = sched.Tick(context.Background(), muchLater)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.count())
}

func TestSchedulerRemoveJobStopsFutureFiring(t *testing.T) {
	s := memory.New()
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	seedClientAndProduction(t, s, day)

	engine := kpi.New(s, kpi.NewCache(time.Minute), nil, nil)
	orch := NewOrchestrator(engine)
	renderer := &countingRenderer{}
	sched := NewScheduler(orch, renderer, nil)

	start := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sched.AddJob(Job{
		ClientID: "CL1", Schedule: "0 0 * * *", Kind: KindDaily, WindowLength: 24 * time.Hour,
		Actor: tenant.Actor{UserID: "scheduler", Role: domain.RoleAdmin, AllowedClientIDs: []string{"CL1"}},
	}, start))

	sched.RemoveJob("CL1")
	require.NoError(t, sched.Tick(context.Background(), start.AddDate(0, 0, 5)))
	assert.Equal(t, 0, renderer.count())
}
