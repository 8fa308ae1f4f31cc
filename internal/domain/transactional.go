package domain

import "time"

// WorkOrderStatus is a node in the status graph governed by internal/workflow.
type WorkOrderStatus string

const (
	StatusReceived  WorkOrderStatus = "RECEIVED"
	StatusDispatched WorkOrderStatus = "DISPATCHED"
	StatusInWIP     WorkOrderStatus = "IN_WIP"
	StatusOnHold    WorkOrderStatus = "ON_HOLD"
	StatusCompleted WorkOrderStatus = "COMPLETED"
	StatusShipped   WorkOrderStatus = "SHIPPED"
	StatusClosed    WorkOrderStatus = "CLOSED"
	StatusCancelled WorkOrderStatus = "CANCELLED"
	StatusRejected  WorkOrderStatus = "REJECTED"
)

// WorkOrder tracks a unit of production work through the status graph.
// Version supports optimistic locking on concurrent mutations.
type WorkOrder struct {
	WorkOrderID          string          `db:"work_order_id"`
	ClientID             string          `db:"client_id"`
	StyleCode            string          `db:"style_code"`
	PlannedQty           int             `db:"planned_qty"`
	PlannedShipDate      *time.Time      `db:"planned_ship_date"`
	RequiredDate         *time.Time      `db:"required_date"`
	ActualDeliveryDate   *time.Time      `db:"actual_delivery_date"`
	Status               WorkOrderStatus `db:"status"`
	ActiveBeforeHold     WorkOrderStatus `db:"active_before_hold"`
	Priority             int             `db:"priority"`
	IdealCycleTimeMinutes *float64       `db:"ideal_cycle_time_minutes"`
	Version              int             `db:"version"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (w *WorkOrder) GetID() string            { return w.WorkOrderID }
func (w *WorkOrder) GetClientID() string      { return w.ClientID }
func (w *WorkOrder) SetCreatedAt(t time.Time) { w.CreatedAt = t }
func (w *WorkOrder) SetUpdatedAt(t time.Time) { w.UpdatedAt = t }

// ProductionEntry records observed output for a shift/product/work order.
type ProductionEntry struct {
	EntryID               string    `db:"entry_id"`
	ClientID              string    `db:"client_id"`
	WorkOrderID           *string   `db:"work_order_id"`
	ProductID             string    `db:"product_id"`
	ShiftID               string    `db:"shift_id"`
	ProductionDate        time.Time `db:"production_date"`
	UnitsProduced         int       `db:"units_produced"`
	RunTimeHours          float64   `db:"run_time_hours"`
	EmployeesAssigned     int       `db:"employees_assigned"`
	DefectCount           int       `db:"defect_count"`
	ScrapCount            int       `db:"scrap_count"`
	ActualCycleTimeMinutes float64  `db:"actual_cycle_time_minutes"` // derived: run_time_hours*60/units_produced
	CreatedBy             string    `db:"created_by"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (p *ProductionEntry) GetID() string            { return p.EntryID }
func (p *ProductionEntry) GetClientID() string      { return p.ClientID }
func (p *ProductionEntry) SetCreatedAt(t time.Time) { p.CreatedAt = t }
func (p *ProductionEntry) SetUpdatedAt(t time.Time) { p.UpdatedAt = t }

// InspectedUnits returns produced + defects + scrap, the quantity that
// passed through inspection.
func (p *ProductionEntry) InspectedUnits() int {
	return p.UnitsProduced + p.DefectCount + p.ScrapCount
}

// DowntimeCategory classifies a downtime reason.
type DowntimeCategory string

const (
	DowntimeMechanical DowntimeCategory = "MECHANICAL"
	DowntimeChangeover DowntimeCategory = "CHANGEOVER"
	DowntimeMaterial   DowntimeCategory = "MATERIAL"
	DowntimeQuality    DowntimeCategory = "QUALITY"
	DowntimeOperator   DowntimeCategory = "OPERATOR"
	DowntimeOther      DowntimeCategory = "OTHER"
)

// DowntimeEntry records an equipment stoppage. Open while EndAt is nil.
type DowntimeEntry struct {
	EntryID         string           `db:"entry_id"`
	ClientID        string           `db:"client_id"`
	EquipmentID     string           `db:"equipment_id"`
	ReasonCode      string           `db:"reason_code"`
	Category        DowntimeCategory `db:"category"`
	StartAt         time.Time        `db:"start_at"`
	EndAt           *time.Time       `db:"end_at"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

func (d *DowntimeEntry) GetID() string            { return d.EntryID }
func (d *DowntimeEntry) GetClientID() string      { return d.ClientID }
func (d *DowntimeEntry) SetCreatedAt(t time.Time) { d.CreatedAt = t }
func (d *DowntimeEntry) SetUpdatedAt(t time.Time) { d.UpdatedAt = t }

// DurationMinutes returns the closed duration, or the duration to asOf if
// still open.
func (d *DowntimeEntry) DurationMinutes(asOf time.Time) float64 {
	end := asOf
	if d.EndAt != nil {
		end = *d.EndAt
	}
	return end.Sub(d.StartAt).Minutes()
}

// IsOpen reports whether the downtime has not yet been closed.
func (d *DowntimeEntry) IsOpen() bool { return d.EndAt == nil }

// HoldSeverity ranks a hold's urgency.
type HoldSeverity string

const (
	SeverityCritical HoldSeverity = "CRITICAL"
	SeverityHigh     HoldSeverity = "HIGH"
	SeverityMedium   HoldSeverity = "MEDIUM"
	SeverityLow      HoldSeverity = "LOW"
)

// HoldDisposition is the resolution applied when a hold resumes.
type HoldDisposition string

const (
	DispositionRelease HoldDisposition = "RELEASE"
	DispositionRework  HoldDisposition = "REWORK"
	DispositionScrap   HoldDisposition = "SCRAP"
	DispositionRTS     HoldDisposition = "RTS"
	DispositionUseAsIs HoldDisposition = "USE_AS_IS"
)

// HoldEntry records a work order quantity held pending disposition.
type HoldEntry struct {
	HoldID           string           `db:"hold_id"`
	ClientID         string           `db:"client_id"`
	WorkOrderID      string           `db:"work_order_id"`
	QuantityHeld     int              `db:"quantity_held"`
	Reason           string           `db:"reason"`
	Severity         HoldSeverity     `db:"severity"`
	Description      string           `db:"description"`
	RequiredAction   string           `db:"required_action"`
	InitiatedBy      string           `db:"initiated_by"`
	InitiatedAt      time.Time        `db:"initiated_at"`
	ResumedAt        *time.Time       `db:"resumed_at"`
	Disposition      *HoldDisposition `db:"disposition"`
	ReleasedQuantity *int             `db:"released_quantity"`
	ApprovedBy       *string          `db:"approved_by"`
	Version          int              `db:"version"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

func (h *HoldEntry) GetID() string            { return h.HoldID }
func (h *HoldEntry) GetClientID() string      { return h.ClientID }
func (h *HoldEntry) SetCreatedAt(t time.Time) { h.CreatedAt = t }
func (h *HoldEntry) SetUpdatedAt(t time.Time) { h.UpdatedAt = t }

// IsResumed reports whether the hold has been closed.
func (h *HoldEntry) IsResumed() bool { return h.ResumedAt != nil }

// AttendanceStatus is a per-shift attendance outcome.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceHalfDay AttendanceStatus = "HALF_DAY"
	AttendanceLeave   AttendanceStatus = "LEAVE"
)

// AttendanceEntry records one employee's attendance for one shift-date.
// Unique per (EmployeeID, AttendanceDate, ShiftID).
type AttendanceEntry struct {
	EntryID         string           `db:"entry_id"`
	ClientID        string           `db:"client_id"`
	EmployeeID      string           `db:"employee_id"`
	AttendanceDate  time.Time        `db:"attendance_date"`
	ShiftID         string           `db:"shift_id"`
	Status          AttendanceStatus `db:"status"`
	AbsenceReason   *string          `db:"absence_reason"`
	IsExcused       bool             `db:"is_excused"`
	ScheduledHours  float64          `db:"scheduled_hours"`
	ActualHours     float64          `db:"actual_hours"`
	ClockIn         *time.Time       `db:"clock_in"`
	ClockOut        *time.Time       `db:"clock_out"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

func (a *AttendanceEntry) GetID() string            { return a.EntryID }
func (a *AttendanceEntry) GetClientID() string      { return a.ClientID }
func (a *AttendanceEntry) SetCreatedAt(t time.Time) { a.CreatedAt = t }
func (a *AttendanceEntry) SetUpdatedAt(t time.Time) { a.UpdatedAt = t }

// UnscheduledAbsenceHours returns the shortfall hours when the employee was
// not excused, used by the Absenteeism KPI.
func (a *AttendanceEntry) UnscheduledAbsenceHours() float64 {
	if a.IsExcused {
		return 0
	}
	if a.Status != AttendanceAbsent && a.Status != AttendanceLate && a.Status != AttendanceHalfDay {
		return 0
	}
	shortfall := a.ScheduledHours - a.ActualHours
	if shortfall < 0 {
		return 0
	}
	return shortfall
}

// InspectionStage is where in the production flow a quality check occurred.
type InspectionStage string

const (
	InspectionIncoming  InspectionStage = "INCOMING"
	InspectionInProcess InspectionStage = "IN_PROCESS"
	InspectionFinal     InspectionStage = "FINAL"
)

// QualityEntry records a quality inspection outcome.
type QualityEntry struct {
	EntryID              string          `db:"entry_id"`
	ClientID             string          `db:"client_id"`
	WorkOrderID          string          `db:"work_order_id"`
	ProductID            string          `db:"product_id"`
	InspectedQty         int             `db:"inspected_qty"`
	DefectQty            int             `db:"defect_qty"`
	RejectedQty          int             `db:"rejected_qty"`
	InspectionStage      InspectionStage `db:"inspection_stage"`
	PrimaryDefectTypeID  *string         `db:"primary_defect_type_id"`
	Severity             string          `db:"severity"`
	Disposition          string          `db:"disposition"`
	InspectorID          string          `db:"inspector_id"`
	InspectedAt          time.Time       `db:"inspected_at"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (q *QualityEntry) GetID() string            { return q.EntryID }
func (q *QualityEntry) GetClientID() string      { return q.ClientID }
func (q *QualityEntry) SetCreatedAt(t time.Time) { q.CreatedAt = t }
func (q *QualityEntry) SetUpdatedAt(t time.Time) { q.UpdatedAt = t }

// PassedFirstTime returns the units that needed no rework or rejection.
func (q *QualityEntry) PassedFirstTime() int {
	return q.InspectedQty - q.DefectQty
}
