package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/logger"
)

// Engine evaluates and applies work-order status transitions against a
// Graph. It is stateless: each call receives the unit of work it mutates
// rather than owning one.
type Engine struct {
	graph *Graph
	log   *logger.Logger
}

// New builds an Engine over the given graph (Default() if nil).
func New(graph *Graph, log *logger.Logger) *Engine {
	if graph == nil {
		graph = Default()
	}
	if log == nil {
		log = logger.NewDefault("workflow")
	}
	return &Engine{graph: graph, log: log}
}

func (e *Engine) event(eventType domain.EventType, clientID, workOrderID string, actorID string, payload any) domain.DomainEvent {
	body, _ := json.Marshal(payload)
	cid := clientID
	return domain.DomainEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: "WorkOrder",
		AggregateID:   workOrderID,
		ClientID:      &cid,
		OccurredAt:    time.Now(),
		TriggeredBy:   &actorID,
		Payload:       body,
	}
}

// TransitionOne applies a single status transition to a work order.
// Returns apperrors.InvalidTransition if to is not reachable from the
// work order's current status in the active graph.
func (e *Engine) TransitionOne(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, workOrderID string, to domain.WorkOrderStatus, note string) (*domain.WorkOrder, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return nil, err
	}
	w, err := uow.Repos.WorkOrders.Get(ctx, clientID, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := tc.CheckWriteTarget(w.ClientID); err != nil {
		return nil, err
	}
	if !e.graph.CanTransition(w.Status, to) {
		e.log.WithField("work_order_id", workOrderID).
			Debugf("rejected transition %s -> %s", w.Status, to)
		return nil, apperrors.InvalidTransition(string(w.Status), string(to))
	}
	from := w.Status
	w.Status = to
	updated, err := uow.Repos.WorkOrders.Update(ctx, w)
	if err != nil {
		return nil, err
	}
	uow.Collect(e.event(domain.EventWorkOrderStatusChanged, clientID, workOrderID, tc.Actor.UserID, map[string]any{
		"from": from, "to": to, "note": note,
	}))
	return updated, nil
}

// BulkResult is the per-item outcome of TransitionBulk.
type BulkResult struct {
	Successful []string
	Failed     []BulkFailure
}

// BulkFailure names the work order and why its transition was skipped.
type BulkFailure struct {
	ID     string
	Reason string
}

// TransitionBulk applies the same target status to many work orders.
// Incompatible orders are skipped (recorded in Failed), not rolled back —
// a partial-success batch still commits the successful subset.
func (e *Engine) TransitionBulk(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, ids []string, to domain.WorkOrderStatus, note string) BulkResult {
	var result BulkResult
	for _, id := range ids {
		if _, err := e.TransitionOne(ctx, tc, uow, id, to, note); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Successful = append(result.Successful, id)
	}
	return result
}

// Hold records the work order's current status as active_before_hold, sets
// status to ON_HOLD, and creates a HoldEntry. Emits HoldCreated.
func (e *Engine) Hold(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, workOrderID, reason string, severity domain.HoldSeverity, description string) (*domain.HoldEntry, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return nil, err
	}
	w, err := uow.Repos.WorkOrders.Get(ctx, clientID, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := tc.CheckWriteTarget(w.ClientID); err != nil {
		return nil, err
	}
	if !e.graph.CanTransition(w.Status, domain.StatusOnHold) && w.Status != domain.StatusOnHold {
		return nil, apperrors.InvalidTransition(string(w.Status), string(domain.StatusOnHold))
	}

	activeBefore := w.Status
	if w.Status != domain.StatusOnHold {
		w.ActiveBeforeHold = activeBefore
		w.Status = domain.StatusOnHold
		if _, err := uow.Repos.WorkOrders.Update(ctx, w); err != nil {
			return nil, err
		}
	}

	hold := &domain.HoldEntry{
		HoldID:         uuid.NewString(),
		ClientID:       clientID,
		WorkOrderID:    workOrderID,
		Reason:         reason,
		Severity:       severity,
		Description:    description,
		InitiatedBy:    tc.Actor.UserID,
		InitiatedAt:    time.Now(),
		RequiredAction: "",
	}
	created, err := uow.Repos.HoldEntries.Create(ctx, hold)
	if err != nil {
		return nil, err
	}
	uow.Collect(e.event(domain.EventHoldCreated, clientID, workOrderID, tc.Actor.UserID, map[string]any{
		"hold_id": created.HoldID, "reason": reason, "severity": severity,
	}))
	return created, nil
}

// Resume closes a hold. If it is the last open hold on the work order, the
// work order leaves ON_HOLD per the disposition policy: REWORK→IN_WIP,
// RELEASE→active_before_hold, SCRAP/RTS/USE_AS_IS→ per disposition table
// below. Ties among multiple overlapping holds resolve to the *last* hold
// to resume.
func (e *Engine) Resume(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, holdID string, disposition domain.HoldDisposition, releasedQty *int, approvedBy, notes string) (*domain.HoldEntry, error) {
	clientID, err := tc.TargetClientID()
	if err != nil {
		return nil, err
	}
	hold, err := uow.Repos.HoldEntries.Get(ctx, clientID, holdID)
	if err != nil {
		return nil, err
	}
	if err := tc.CheckWriteTarget(hold.ClientID); err != nil {
		return nil, err
	}
	if hold.IsResumed() {
		return nil, apperrors.Validation("hold_id", "hold already resumed")
	}

	now := time.Now()
	hold.ResumedAt = &now
	hold.Disposition = &disposition
	hold.ReleasedQuantity = releasedQty
	if approvedBy != "" {
		hold.ApprovedBy = &approvedBy
	}
	hold.RequiredAction = notes
	resumed, err := uow.Repos.HoldEntries.Update(ctx, hold)
	if err != nil {
		return nil, err
	}
	uow.Collect(e.event(domain.EventHoldResumed, clientID, hold.WorkOrderID, tc.Actor.UserID, map[string]any{
		"hold_id": holdID, "disposition": disposition,
	}))

	remaining, err := uow.Repos.HoldEntries.ListByWorkOrder(ctx, clientID, hold.WorkOrderID)
	if err != nil {
		return resumed, err
	}
	for _, h := range remaining {
		if !h.IsResumed() {
			// Other overlapping holds remain open; the work order stays
			// ON_HOLD until the *last* one resumes.
			return resumed, nil
		}
	}

	w, err := uow.Repos.WorkOrders.Get(ctx, clientID, hold.WorkOrderID)
	if err != nil {
		return resumed, err
	}
	from := w.Status
	switch disposition {
	case domain.DispositionRework:
		w.Status = domain.StatusInWIP
	case domain.DispositionRelease, domain.DispositionUseAsIs:
		w.Status = w.ActiveBeforeHold
	case domain.DispositionScrap, domain.DispositionRTS:
		w.Status = domain.StatusCancelled
	default:
		w.Status = w.ActiveBeforeHold
	}
	if _, err := uow.Repos.WorkOrders.Update(ctx, w); err != nil {
		return resumed, err
	}
	uow.Collect(e.event(domain.EventWorkOrderStatusChanged, clientID, hold.WorkOrderID, tc.Actor.UserID, map[string]any{
		"from": from, "to": w.Status, "note": "hold resumed: " + string(disposition),
	}))
	return resumed, nil
}
