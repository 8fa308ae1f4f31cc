package facade

import (
	"context"
	"time"

	"github.com/manufab-platform/kpi-core/internal/capacity"
	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/forecast"
	"github.com/manufab-platform/kpi-core/internal/ingestion"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/internal/reporting"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/internal/workflow"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// LoginResult is the CLI-surface login(username, password) response shape.
type LoginResult struct {
	Actor tenant.Actor
	Token string
}

// Login verifies a username/password pair against the user store and
// issues a signed token. Rate-limited to a default of 10 attempts per
// minute per source.
func (f *Facade) Login(ctx context.Context, username, password, rateLimitKey string) (LoginResult, error) {
	if err := f.RateLimit.Guard(rateLimitKey); err != nil {
		return LoginResult{}, err
	}

	uow, err := f.Backend.Begin(ctx)
	if err != nil {
		return LoginResult{}, apperrors.Infra("begin read scope", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	user, err := uow.Repos.Users.GetByDisplayName(ctx, username)
	if err != nil || !user.Active {
		return LoginResult{}, apperrors.Unauthenticated("invalid credentials")
	}
	ok, err := tenant.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, apperrors.Unauthenticated("invalid credentials")
	}

	actor := tenant.Actor{UserID: user.UserID, Role: user.Role, AllowedClientIDs: user.AssignedClientIDs}
	token, err := f.TokenIssuer.Issue(actor)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Actor: actor, Token: token}, nil
}

// QueryKPI evaluates one KPI for a tenant/window/filter, matching the CLI
// surface's query_kpi(client_id, kpi, window, filters) verb.
func (f *Facade) QueryKPI(ctx context.Context, tc tenant.Context, kpiName string, window kpi.Window, filter kpi.Filter) (kpi.Result, error) {
	switch kpiName {
	case "OTD":
		return f.KPI.OTD(ctx, tc, window, filter)
	case "EFFICIENCY":
		return f.KPI.Efficiency(ctx, tc, window, filter)
	case "PPM":
		return f.KPI.PPM(ctx, tc, window, filter)
	case "DPMO":
		return f.KPI.DPMO(ctx, tc, window, filter)
	case "RTY":
		return f.KPI.RTY(ctx, tc, window, filter)
	case "AVAILABILITY":
		return f.KPI.Availability(ctx, tc, window, filter)
	case "PERFORMANCE":
		return f.KPI.Performance(ctx, tc, window, filter)
	case "OEE":
		return f.KPI.OEE(ctx, tc, window, filter)
	case "ABSENTEEISM":
		r, _, err := f.KPI.Absenteeism(ctx, tc, window, filter)
		return r, err
	default:
		return kpi.Result{}, apperrors.Validation("kpi", "unknown kpi name")
	}
}

// Transition applies a single work order status transition. STALE failures
// are retried: a STALE failure rolls back the whole unit of work, so each
// retry re-reads the work order and re-checks the edge from its current
// status. Re-applying the status a work order already has is not an edge
// of the graph and fails with INVALID_TRANSITION.
func (f *Facade) Transition(ctx context.Context, tc tenant.Context, workOrderID string, to domain.WorkOrderStatus, note string) (*domain.WorkOrder, error) {
	var result *domain.WorkOrder
	err := f.writeOp(ctx, "transition", true, func(uow *repository.UnitOfWork) error {
		wo, err := f.Workflow.TransitionOne(ctx, tc, uow, workOrderID, to, note)
		if err != nil {
			return err
		}
		result = wo
		return nil
	})
	return result, err
}

// TransitionBulk applies a status transition to many work orders,
// skipping incompatible ones without rolling back the batch — not
// retried on STALE since a partially-applied bulk result is not safely
// re-playable as a whole.
func (f *Facade) TransitionBulk(ctx context.Context, tc tenant.Context, ids []string, to domain.WorkOrderStatus, note string) (workflow.BulkResult, error) {
	var result workflow.BulkResult
	err := f.writeOp(ctx, "transition_bulk", false, func(uow *repository.UnitOfWork) error {
		result = f.Workflow.TransitionBulk(ctx, tc, uow, ids, to, note)
		return nil
	})
	return result, err
}

// Hold places a work order on hold.
func (f *Facade) Hold(ctx context.Context, tc tenant.Context, workOrderID, reason string, severity domain.HoldSeverity, description string) (*domain.HoldEntry, error) {
	var hold *domain.HoldEntry
	err := f.writeOp(ctx, "hold", true, func(uow *repository.UnitOfWork) error {
		h, err := f.Workflow.Hold(ctx, tc, uow, workOrderID, reason, severity, description)
		if err != nil {
			return err
		}
		hold = h
		return nil
	})
	return hold, err
}

// Resume closes an open hold and advances the work order if it was the
// last overlapping hold.
func (f *Facade) Resume(ctx context.Context, tc tenant.Context, holdID string, disposition domain.HoldDisposition, releasedQty *int, approvedBy, notes string) (*domain.HoldEntry, error) {
	var hold *domain.HoldEntry
	err := f.writeOp(ctx, "resume", true, func(uow *repository.UnitOfWork) error {
		h, err := f.Workflow.Resume(ctx, tc, uow, holdID, disposition, releasedQty, approvedBy, notes)
		if err != nil {
			return err
		}
		hold = h
		return nil
	})
	return hold, err
}

// ForecastKPI projects a KPI's trailing history forward.
func (f *Facade) ForecastKPI(ctx context.Context, tc tenant.Context, kpiName string, asOf time.Time, historyDays, forecastDays int, filter kpi.Filter) (forecast.Forecast, error) {
	return f.Forecast.ForecastKPI(ctx, tc, kpiName, asOf, historyDays, forecastDays, filter)
}

// Report assembles a tenant's report payload for the given window/kind.
func (f *Facade) Report(ctx context.Context, tc tenant.Context, window kpi.Window, kind reporting.Kind, filter kpi.Filter, asOf time.Time) (reporting.Payload, error) {
	return f.Reporting.Generate(ctx, tc, window, kind, filter, asOf)
}

// CapacityWorkbook returns the tenant's committed capacity-planning
// workbook.
func (f *Facade) CapacityWorkbook(clientID string) *capacity.Workbook {
	return f.Capacity.Get(clientID)
}

// RunComponentCheck runs the MRP component check over the tenant's
// committed workbook.
func (f *Facade) RunComponentCheck(clientID string) []capacity.ComponentCheckRow {
	w := f.Capacity.Get(clientID)
	return capacity.RunComponentCheck(w)
}

// RunCapacityAnalysis runs the capacity analysis pass over the tenant's
// committed workbook.
func (f *Facade) RunCapacityAnalysis(clientID string) []capacity.CapacityAnalysisRow {
	w := f.Capacity.Get(clientID)
	return capacity.RunCapacityAnalysis(w)
}

// RunScenario evaluates a what-if scenario against the tenant's committed
// workbook without mutating it.
func (f *Facade) RunScenario(clientID string, scenario capacity.WhatIfScenario) (*capacity.Workbook, capacity.ScenarioDelta, error) {
	w := f.Capacity.Get(clientID)
	return capacity.ApplyScenario(w, scenario)
}

// SaveCapacityWorkbook persists a dirty workbook under optimistic
// concurrency.
func (f *Facade) SaveCapacityWorkbook(clientID string, dirty *capacity.Workbook, expectedVersion int) (*capacity.Workbook, error) {
	return f.Capacity.Save(clientID, dirty, expectedVersion)
}

// UndoCapacityWorkbook reverts the tenant's workbook to the previous
// committed snapshot in its bounded undo/redo history.
func (f *Facade) UndoCapacityWorkbook(clientID string) (*capacity.Workbook, error) {
	w, ok := f.Capacity.Undo(clientID)
	if !ok {
		return nil, apperrors.Validation("history", "nothing to undo")
	}
	return w, nil
}

// RedoCapacityWorkbook reapplies the tenant's most recently undone
// workbook snapshot.
func (f *Facade) RedoCapacityWorkbook(clientID string) (*capacity.Workbook, error) {
	w, ok := f.Capacity.Redo(clientID)
	if !ok {
		return nil, apperrors.Validation("history", "nothing to redo")
	}
	return w, nil
}

// IngestStage runs the dry-run half of the CLI's ingest(kind, stream,
// dry_run=true) verb: parse, schema-bind, and validate a CSV batch without
// committing, returning the read-back summary and an opaque batch handle
// for a later IngestCommit call.
func (f *Facade) IngestStage(ctx context.Context, tc tenant.Context, kind ingestion.Kind, data []byte) (ingestion.Summary, *ingestion.StagedBatch, error) {
	uow, err := f.Backend.Begin(ctx)
	if err != nil {
		return ingestion.Summary{}, nil, apperrors.Infra("begin ingest read scope", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()
	return f.Ingestion.Stage(ctx, tc, uow, kind, data)
}

// IngestCommit runs the commit half of the CLI's ingest(kind, stream,
// dry_run=false) verb over a batch previously produced by IngestStage. Not
// retried on STALE — a batch insert has no optimistic-lock version to
// retry against; conflicts surface as CONFLICT and the whole batch rolls
// back.
func (f *Facade) IngestCommit(ctx context.Context, tc tenant.Context, batch *ingestion.StagedBatch) (ingestion.CommitReceipt, error) {
	var receipt ingestion.CommitReceipt
	err := f.writeOp(ctx, "ingest_commit", false, func(uow *repository.UnitOfWork) error {
		r, err := f.Ingestion.CommitBatch(ctx, tc, uow, batch)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	return receipt, err
}
