package reporting

import (
	"context"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/samber/lo"
)

// Orchestrator assembles Payloads from internal/kpi's Engine and hands
// them to a Renderer. It performs no rendering itself — rendering is an
// external collaborator behind a fixed adapter.
type Orchestrator struct {
	engine *kpi.Engine
}

// NewOrchestrator wires an Orchestrator to a KPI engine.
func NewOrchestrator(engine *kpi.Engine) *Orchestrator {
	return &Orchestrator{engine: engine}
}

// Generate pulls all ten KPIs plus the OEE composite and WIP aging for the
// given tenant/window/kind and assembles a Payload ready for rendering.
func (o *Orchestrator) Generate(ctx context.Context, tc tenant.Context, window kpi.Window, kind Kind, filter kpi.Filter, asOf time.Time) (Payload, error) {
	type named struct {
		name string
		eval func() (kpi.Result, error)
	}
	evaluators := []named{
		{"OTD", func() (kpi.Result, error) { return o.engine.OTD(ctx, tc, window, filter) }},
		{"EFFICIENCY", func() (kpi.Result, error) { return o.engine.Efficiency(ctx, tc, window, filter) }},
		{"PPM", func() (kpi.Result, error) { return o.engine.PPM(ctx, tc, window, filter) }},
		{"DPMO", func() (kpi.Result, error) { return o.engine.DPMO(ctx, tc, window, filter) }},
		{"FPY_FINAL", func() (kpi.Result, error) { return o.engine.FPY(ctx, tc, window, filter, domain.InspectionFinal) }},
		{"RTY", func() (kpi.Result, error) { return o.engine.RTY(ctx, tc, window, filter) }},
		{"AVAILABILITY", func() (kpi.Result, error) { return o.engine.Availability(ctx, tc, window, filter) }},
		{"PERFORMANCE", func() (kpi.Result, error) { return o.engine.Performance(ctx, tc, window, filter) }},
	}

	snapshots := make([]KPISnapshot, 0, len(evaluators)+2)
	for _, e := range evaluators {
		r, err := e.eval()
		if err != nil {
			return Payload{}, err
		}
		snapshots = append(snapshots, KPISnapshot{Name: e.name, Result: r})
	}

	absenteeism, bradford, err := o.engine.Absenteeism(ctx, tc, window, filter)
	if err != nil {
		return Payload{}, err
	}
	snapshots = append(snapshots, KPISnapshot{Name: "ABSENTEEISM", Result: absenteeism})

	oee, err := o.engine.OEE(ctx, tc, window, filter)
	if err != nil {
		return Payload{}, err
	}

	aging, err := o.engine.WIPAging(ctx, tc, asOf)
	if err != nil {
		return Payload{}, err
	}
	snapshots = append(snapshots, KPISnapshot{Name: "WIP_AGING", Result: kpi.Result{Detail: map[string]any{
		"bucket_0_7":    aging.Bucket0To7,
		"bucket_8_14":   aging.Bucket8To14,
		"bucket_15_30":  aging.Bucket15To30,
		"bucket_over_30": aging.BucketOver30,
		"average_days":  aging.AverageDays,
		"max_days":      aging.MaxDays,
	}}})

	clientID, err := tc.TargetClientID()
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		ClientID:    clientID,
		Kind:        kind,
		Window:      window,
		GeneratedAt: asOf,
		KPIs:        snapshots,
		OEE:         oee,
		WIPAging:    aging,
		Bradford:    lo.Filter(bradford, func(b kpi.BradfordFactor, _ int) bool { return b.Score > 0 }),
	}, nil
}
