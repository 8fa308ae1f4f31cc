package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/logger"
	"github.com/manufab-platform/kpi-core/pkg/metrics"
	"github.com/manufab-platform/kpi-core/pkg/version"
)

// Pipeline runs the stage-then-commit flow over a unit of
// work supplied by the caller (the service facade), mirroring
// internal/workflow.Engine's shape of operating on an externally-owned
// *repository.UnitOfWork rather than holding one itself.
type Pipeline struct {
	log *logger.Logger
}

// NewPipeline builds a Pipeline.
func NewPipeline(log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewDefault("ingestion")
	}
	return &Pipeline{log: log}
}

// Stage parses, schema-binds, and validates a CSV batch read-only against
// uow, returning the read-back summary and (if any rows validated) a
// StagedBatch for a later CommitBatch call. uow is never mutated here.
func (p *Pipeline) Stage(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, kind Kind, data []byte) (Summary, *StagedBatch, error) {
	targetClientID, err := tc.TargetClientID()
	if err != nil {
		return Summary{}, nil, err
	}

	warnings, raws, decoded, err := decodeRows(kind, data)
	if err != nil {
		return Summary{}, nil, err
	}

	total := len(decoded)
	summary := Summary{Kind: kind, Total: total, Warnings: warnings}
	staged := &StagedBatch{Kind: kind}
	seenKeys := make(map[string]bool)

	for i, raw := range raws {
		rowIndex := i + 1
		if len(summary.SamplePreview) < 5 {
			summary.SamplePreview = append(summary.SamplePreview, raw)
		}

		row, naturalKey, reason := p.validateRow(ctx, tc, uow, targetClientID, kind, decoded[i], raw)
		if reason == "" && naturalKey != "" {
			if seenKeys[naturalKey] {
				reason = "duplicate natural key within batch: " + naturalKey
			} else {
				seenKeys[naturalKey] = true
			}
		}

		if reason != "" {
			summary.Invalid++
			metrics.ObserveIngestionRow(string(kind), "invalid")
			if len(summary.Errors) < maxReportedErrors {
				summary.Errors = append(summary.Errors, RowError{RowIndex: rowIndex, Reason: reason, RawRow: raw})
			}
			continue
		}

		summary.Valid++
		metrics.ObserveIngestionRow(string(kind), "valid")
		row.rowIndex = rowIndex
		row.raw = raw
		staged.rows = append(staged.rows, *row)
	}

	if len(staged.rows) == 0 {
		return summary, nil, nil
	}
	return summary, staged, nil
}

// validateRow coerces and validates one decoded row, returning either a
// populated stagedRow and an optional natural key (for batch-internal
// duplicate detection) or a non-empty rejection reason.
func (p *Pipeline) validateRow(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, targetClientID string, kind Kind, decoded interface{}, raw map[string]string) (*stagedRow, string, string) {
	clientID := raw["client_id"]
	if clientID == "" {
		clientID = targetClientID
	} else if err := tc.CheckWriteTarget(clientID); err != nil {
		return nil, "", err.Error()
	}

	switch kind {
	case KindProduction:
		return p.validateProduction(ctx, uow, clientID, tc.Actor.UserID, raw)
	case KindDowntime:
		return p.validateDowntime(uow, clientID, raw)
	case KindQuality:
		return p.validateQuality(ctx, uow, clientID, raw)
	case KindAttendance:
		return p.validateAttendance(ctx, uow, clientID, raw)
	default:
		return nil, "", "unknown ingestion kind"
	}
}

func (p *Pipeline) validateProduction(ctx context.Context, uow *repository.UnitOfWork, clientID, actorID string, raw map[string]string) (*stagedRow, string, string) {
	productID := raw["product_id"]
	if productID == "" {
		return nil, "", "product_id is required"
	}
	if _, err := uow.Repos.Products.Get(ctx, clientID, productID); err != nil {
		return nil, "", "product_id does not resolve within client: " + productID
	}

	date, err := parseDate(raw["production_date"])
	if err != nil {
		return nil, "", "production_date: " + err.Error()
	}
	units, err := parseIntField(raw["units_produced"])
	if err != nil || units < 0 {
		return nil, "", "units_produced must be a non-negative integer"
	}
	runTimeHours, err := parseDecimal(raw["run_time_hours"])
	if err != nil || runTimeHours <= 0 || runTimeHours > 24 {
		return nil, "", "run_time_hours must satisfy 0 < run_time_hours <= 24"
	}

	employeesAssigned := 0
	if raw["employees_assigned"] != "" {
		employeesAssigned, err = parseIntField(raw["employees_assigned"])
		if err != nil || employeesAssigned < 0 {
			return nil, "", "employees_assigned must be a non-negative integer"
		}
	}
	defectCount := 0
	if raw["defect_count"] != "" {
		defectCount, err = parseIntField(raw["defect_count"])
		if err != nil || defectCount < 0 {
			return nil, "", "defect_count must be a non-negative integer"
		}
	}
	scrapCount := 0
	if raw["scrap_count"] != "" {
		scrapCount, err = parseIntField(raw["scrap_count"])
		if err != nil || scrapCount < 0 {
			return nil, "", "scrap_count must be a non-negative integer"
		}
	}

	var workOrderID *string
	if raw["work_order_id"] != "" {
		if _, err := uow.Repos.WorkOrders.Get(ctx, clientID, raw["work_order_id"]); err != nil {
			return nil, "", "work_order_id does not resolve within client: " + raw["work_order_id"]
		}
		wo := raw["work_order_id"]
		workOrderID = &wo
	}

	actualCycleTime := 0.0
	if units > 0 {
		actualCycleTime = runTimeHours * 60 / float64(units)
	}

	entry := &domain.ProductionEntry{
		EntryID:                uuid.NewString(),
		ClientID:               clientID,
		WorkOrderID:            workOrderID,
		ProductID:              productID,
		ShiftID:                raw["shift_id"],
		ProductionDate:         date,
		UnitsProduced:          units,
		RunTimeHours:           runTimeHours,
		EmployeesAssigned:      employeesAssigned,
		DefectCount:            defectCount,
		ScrapCount:             scrapCount,
		ActualCycleTimeMinutes: actualCycleTime,
		CreatedBy:              actorID,
	}
	return &stagedRow{production: entry}, "", ""
}

func (p *Pipeline) validateDowntime(uow *repository.UnitOfWork, clientID string, raw map[string]string) (*stagedRow, string, string) {
	if raw["equipment_id"] == "" {
		return nil, "", "equipment_id is required"
	}
	category := domain.DowntimeCategory(raw["category"])
	switch category {
	case domain.DowntimeMechanical, domain.DowntimeChangeover, domain.DowntimeMaterial,
		domain.DowntimeQuality, domain.DowntimeOperator, domain.DowntimeOther:
	default:
		return nil, "", "category is not a recognized downtime category: " + raw["category"]
	}

	startAt, err := parseDateTime(raw["start_at"])
	if err != nil {
		return nil, "", "start_at: " + err.Error()
	}
	var endAt *time.Time
	if raw["end_at"] != "" {
		t, err := parseDateTime(raw["end_at"])
		if err != nil {
			return nil, "", "end_at: " + err.Error()
		}
		if t.Before(startAt) {
			return nil, "", "end_at precedes start_at"
		}
		endAt = &t
	}

	entry := &domain.DowntimeEntry{
		EntryID:     uuid.NewString(),
		ClientID:    clientID,
		EquipmentID: raw["equipment_id"],
		ReasonCode:  raw["reason_code"],
		Category:    category,
		StartAt:     startAt,
		EndAt:       endAt,
	}
	return &stagedRow{downtime: entry}, "", ""
}

func (p *Pipeline) validateQuality(ctx context.Context, uow *repository.UnitOfWork, clientID string, raw map[string]string) (*stagedRow, string, string) {
	if raw["work_order_id"] == "" {
		return nil, "", "work_order_id is required"
	}
	if _, err := uow.Repos.WorkOrders.Get(ctx, clientID, raw["work_order_id"]); err != nil {
		return nil, "", "work_order_id does not resolve within client: " + raw["work_order_id"]
	}
	if raw["product_id"] == "" {
		return nil, "", "product_id is required"
	}
	if _, err := uow.Repos.Products.Get(ctx, clientID, raw["product_id"]); err != nil {
		return nil, "", "product_id does not resolve within client: " + raw["product_id"]
	}

	inspectedQty, err := parseIntField(raw["inspected_qty"])
	if err != nil || inspectedQty < 0 {
		return nil, "", "inspected_qty must be a non-negative integer"
	}
	defectQty, err := parseIntField(raw["defect_qty"])
	if err != nil || defectQty < 0 {
		return nil, "", "defect_qty must be a non-negative integer"
	}
	rejectedQty := 0
	if raw["rejected_qty"] != "" {
		rejectedQty, err = parseIntField(raw["rejected_qty"])
		if err != nil || rejectedQty < 0 {
			return nil, "", "rejected_qty must be a non-negative integer"
		}
	}
	if defectQty+rejectedQty > inspectedQty {
		return nil, "", "defect_qty + rejected_qty cannot exceed inspected_qty"
	}

	stage := domain.InspectionStage(raw["inspection_stage"])
	switch stage {
	case domain.InspectionIncoming, domain.InspectionInProcess, domain.InspectionFinal:
	default:
		return nil, "", "inspection_stage is not recognized: " + raw["inspection_stage"]
	}

	inspectedAt, err := parseDateTime(raw["inspected_at"])
	if err != nil {
		return nil, "", "inspected_at: " + err.Error()
	}

	var primaryDefectTypeID *string
	if raw["primary_defect_type_id"] != "" {
		v := raw["primary_defect_type_id"]
		primaryDefectTypeID = &v
	}

	entry := &domain.QualityEntry{
		EntryID:             uuid.NewString(),
		ClientID:            clientID,
		WorkOrderID:         raw["work_order_id"],
		ProductID:           raw["product_id"],
		InspectedQty:        inspectedQty,
		DefectQty:           defectQty,
		RejectedQty:         rejectedQty,
		InspectionStage:     stage,
		PrimaryDefectTypeID: primaryDefectTypeID,
		Severity:            raw["severity"],
		Disposition:         raw["disposition"],
		InspectorID:         raw["inspector_id"],
		InspectedAt:         inspectedAt,
	}
	return &stagedRow{quality: entry}, "", ""
}

func (p *Pipeline) validateAttendance(ctx context.Context, uow *repository.UnitOfWork, clientID string, raw map[string]string) (*stagedRow, string, string) {
	if raw["employee_id"] == "" {
		return nil, "", "employee_id is required"
	}
	if _, err := uow.Repos.Employees.Get(ctx, raw["employee_id"]); err != nil {
		return nil, "", "employee_id does not resolve: " + raw["employee_id"]
	}

	date, err := parseDate(raw["attendance_date"])
	if err != nil {
		return nil, "", "attendance_date: " + err.Error()
	}
	if raw["shift_id"] == "" {
		return nil, "", "shift_id is required"
	}

	status := domain.AttendanceStatus(raw["status"])
	switch status {
	case domain.AttendancePresent, domain.AttendanceAbsent, domain.AttendanceLate,
		domain.AttendanceHalfDay, domain.AttendanceLeave:
	default:
		return nil, "", "status is not recognized: " + raw["status"]
	}

	scheduledHours, err := parseDecimal(raw["scheduled_hours"])
	if err != nil || scheduledHours < 0 {
		return nil, "", "scheduled_hours must be a non-negative number"
	}
	actualHours := 0.0
	if raw["actual_hours"] != "" {
		actualHours, err = parseDecimal(raw["actual_hours"])
		if err != nil || actualHours < 0 {
			return nil, "", "actual_hours must be a non-negative number"
		}
	}
	isExcused := false
	if raw["is_excused"] != "" {
		isExcused, err = parseBoolField(raw["is_excused"])
		if err != nil {
			return nil, "", "is_excused: " + err.Error()
		}
	}

	var absenceReason *string
	if raw["absence_reason"] != "" {
		v := raw["absence_reason"]
		absenceReason = &v
	}

	if existing, err := uow.Repos.AttendanceEntries.FindDuplicate(ctx, clientID, raw["employee_id"], raw["shift_id"], date); err == nil && existing != nil {
		return nil, "", fmt.Sprintf("attendance row already recorded for employee %s on %s shift %s", raw["employee_id"], date.Format("2006-01-02"), raw["shift_id"])
	}

	entry := &domain.AttendanceEntry{
		EntryID:        uuid.NewString(),
		ClientID:       clientID,
		EmployeeID:     raw["employee_id"],
		AttendanceDate: date,
		ShiftID:        raw["shift_id"],
		Status:         status,
		AbsenceReason:  absenceReason,
		IsExcused:      isExcused,
		ScheduledHours: scheduledHours,
		ActualHours:    actualHours,
	}
	naturalKey := raw["employee_id"] + "|" + date.Format("2006-01-02") + "|" + raw["shift_id"]
	return &stagedRow{attendance: entry}, naturalKey, ""
}

// CommitBatch inserts every row in batch via uow in the order they were
// staged, emitting one …Created event per row where the event taxonomy
// defines one. Any single insertion failure is
// propagated unrolled-back — the caller's unit of work management (the
// service facade's writeOp) rolls back the whole batch, giving the
// required no-partial-commit semantics.
func (p *Pipeline) CommitBatch(ctx context.Context, tc tenant.Context, uow *repository.UnitOfWork, batch *StagedBatch) (CommitReceipt, error) {
	if batch == nil || len(batch.rows) == 0 {
		return CommitReceipt{}, apperrors.Validation("batch", "no staged rows to commit")
	}

	actorID := tc.Actor.UserID
	inserted := 0
	for _, row := range batch.rows {
		switch batch.Kind {
		case KindProduction:
			created, err := uow.Repos.ProductionEntries.Create(ctx, row.production)
			if err != nil {
				return CommitReceipt{}, err
			}
			uow.Collect(ingestionEvent(domain.EventProductionEntryCreated, "ProductionEntry", created.EntryID, created.ClientID, actorID, created))
		case KindDowntime:
			if _, err := uow.Repos.DowntimeEntries.Create(ctx, row.downtime); err != nil {
				return CommitReceipt{}, err
			}
		case KindQuality:
			created, err := uow.Repos.QualityEntries.Create(ctx, row.quality)
			if err != nil {
				return CommitReceipt{}, err
			}
			uow.Collect(ingestionEvent(domain.EventQualityInspectionRecorded, "QualityEntry", created.EntryID, created.ClientID, actorID, created))
		case KindAttendance:
			if _, err := uow.Repos.AttendanceEntries.Create(ctx, row.attendance); err != nil {
				return CommitReceipt{}, err
			}
		}
		inserted++
	}
	return CommitReceipt{Inserted: inserted, ClientAgent: version.ClientID()}, nil
}

func ingestionEvent(eventType domain.EventType, aggregateType, aggregateID, clientID, actorID string, payload any) domain.DomainEvent {
	body, _ := json.Marshal(payload)
	cid := clientID
	return domain.DomainEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		ClientID:      &cid,
		OccurredAt:    time.Now(),
		TriggeredBy:   &actorID,
		Payload:       body,
	}
}
