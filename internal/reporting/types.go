// Package reporting implements the reporting orchestrator: it pulls
// the ten KPIs plus the OEE composite from internal/kpi for a tenant/window,
// hands the assembled payload to an external rendering adapter, and runs a
// single-process per-tenant periodic scheduler, following a trigger-polling
// loop shape generalized from on-chain/webhook triggers to report-generation
// jobs.
package reporting

import (
	"time"

	"github.com/manufab-platform/kpi-core/internal/kpi"
)

// Kind is the report cadence requested by a client.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

// KPISnapshot pairs a KPI's name with its computed Result for inclusion
// in a Payload.
type KPISnapshot struct {
	Name   string
	Result kpi.Result
}

// Payload is everything a rendering adapter needs to produce a document:
// the ten KPI results, the OEE composite, WIP aging buckets, and the
// window/kind/client the report covers.
type Payload struct {
	ClientID    string
	Kind        Kind
	Window      kpi.Window
	GeneratedAt time.Time

	KPIs      []KPISnapshot
	OEE       kpi.Result
	WIPAging  kpi.AgingBuckets
	Bradford  []kpi.BradfordFactor
}
