// Package ingestion implements the CSV upload pipeline: schema
// binding, per-row validation with type coercion, a dry-run read-back
// summary, and a deterministic-order commit, following a stage-then-commit
// shape generalized from external price feeds to uploaded CSV batches.
package ingestion

import "github.com/manufab-platform/kpi-core/internal/domain"

// Kind names the entity kind a CSV batch targets.
type Kind string

const (
	KindProduction Kind = "PRODUCTION_ENTRY"
	KindDowntime   Kind = "DOWNTIME_ENTRY"
	KindQuality    Kind = "QUALITY_ENTRY"
	KindAttendance Kind = "ATTENDANCE_ENTRY"
)

// requiredColumns lists the canonical column names that must be present in
// the header for a given kind; their absence aborts the whole batch with
// ERR_BAD_HEADER before any row is examined.
var requiredColumns = map[Kind][]string{
	KindProduction: {"product_id", "shift_id", "production_date", "units_produced", "run_time_hours"},
	KindDowntime:   {"equipment_id", "reason_code", "category", "start_at"},
	KindQuality:    {"work_order_id", "product_id", "inspected_qty", "defect_qty", "inspection_stage", "inspected_at"},
	KindAttendance: {"employee_id", "attendance_date", "shift_id", "status", "scheduled_hours"},
}

// knownColumns lists every canonical column name Kind recognizes, required
// or optional; anything in a header not in this set is an unknown-column
// warning rather than a fatal error.
var knownColumns = map[Kind][]string{
	KindProduction: {"client_id", "work_order_id", "product_id", "shift_id", "production_date",
		"units_produced", "run_time_hours", "employees_assigned", "defect_count", "scrap_count"},
	KindDowntime: {"client_id", "equipment_id", "reason_code", "category", "start_at", "end_at"},
	KindQuality: {"client_id", "work_order_id", "product_id", "inspected_qty", "defect_qty", "rejected_qty",
		"inspection_stage", "primary_defect_type_id", "severity", "disposition", "inspector_id", "inspected_at"},
	KindAttendance: {"client_id", "employee_id", "attendance_date", "shift_id", "status", "absence_reason",
		"is_excused", "scheduled_hours", "actual_hours", "clock_in", "clock_out"},
}

// RowError describes one rejected row; RawRow preserves the original cell
// values keyed by canonical column name for operator diagnosis.
type RowError struct {
	RowIndex int
	Reason   string
	RawRow   map[string]string
}

const maxReportedErrors = 100

// Summary is the dry-run read-back handed to the caller before commit.
type Summary struct {
	Kind          Kind
	Total         int
	Valid         int
	Invalid       int
	Warnings      []string
	SamplePreview []map[string]string
	Errors        []RowError
}

// StagedBatch bundles a validated, not-yet-committed set of rows; the
// Summary shown to the caller is returned separately by Stage. CommitBatch
// requires exactly this value — it is not reconstructible from the summary
// alone.
type StagedBatch struct {
	Kind    Kind
	rows    []stagedRow
}

// stagedRow carries one validated row ready for insertion plus the raw
// cells it was derived from, for duplicate-key detection and diagnostics.
type stagedRow struct {
	rowIndex int
	raw      map[string]string

	production *domain.ProductionEntry
	downtime   *domain.DowntimeEntry
	quality    *domain.QualityEntry
	attendance *domain.AttendanceEntry
}

// CommitReceipt reports the outcome of a successful commit.
type CommitReceipt struct {
	Inserted    int
	ClientAgent string // identifies the ingesting build, e.g. "manufabctl/0.1.0"
}
