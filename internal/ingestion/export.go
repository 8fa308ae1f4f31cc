package ingestion

import (
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// ExportProduction renders committed production entries back to CSV using
// the same staging struct and column tags decodeRows binds on ingest, so
// ingest(export(rows)) round-trips.
func ExportProduction(rows []*domain.ProductionEntry) ([]byte, error) {
	staged := make([]productionStagingRow, 0, len(rows))
	for _, r := range rows {
		workOrderID := ""
		if r.WorkOrderID != nil {
			workOrderID = *r.WorkOrderID
		}
		staged = append(staged, productionStagingRow{
			ClientID:          r.ClientID,
			WorkOrderID:       workOrderID,
			ProductID:         r.ProductID,
			ShiftID:           r.ShiftID,
			ProductionDate:    r.ProductionDate.Format("2006-01-02"),
			UnitsProduced:     itoa(r.UnitsProduced),
			RunTimeHours:      ftoa(r.RunTimeHours),
			EmployeesAssigned: itoa(r.EmployeesAssigned),
			DefectCount:       itoa(r.DefectCount),
			ScrapCount:        itoa(r.ScrapCount),
		})
	}
	return marshalOrValidationErr(&staged)
}

// ExportDowntime renders committed downtime entries back to CSV.
func ExportDowntime(rows []*domain.DowntimeEntry) ([]byte, error) {
	staged := make([]downtimeStagingRow, 0, len(rows))
	for _, r := range rows {
		endAt := ""
		if r.EndAt != nil {
			endAt = r.EndAt.Format(rfc3339Date)
		}
		staged = append(staged, downtimeStagingRow{
			ClientID:    r.ClientID,
			EquipmentID: r.EquipmentID,
			ReasonCode:  r.ReasonCode,
			Category:    string(r.Category),
			StartAt:     r.StartAt.Format(rfc3339Date),
			EndAt:       endAt,
		})
	}
	return marshalOrValidationErr(&staged)
}

// ExportQuality renders committed quality entries back to CSV.
func ExportQuality(rows []*domain.QualityEntry) ([]byte, error) {
	staged := make([]qualityStagingRow, 0, len(rows))
	for _, r := range rows {
		defectTypeID := ""
		if r.PrimaryDefectTypeID != nil {
			defectTypeID = *r.PrimaryDefectTypeID
		}
		staged = append(staged, qualityStagingRow{
			ClientID:            r.ClientID,
			WorkOrderID:         r.WorkOrderID,
			ProductID:           r.ProductID,
			InspectedQty:        itoa(r.InspectedQty),
			DefectQty:           itoa(r.DefectQty),
			RejectedQty:         itoa(r.RejectedQty),
			InspectionStage:     string(r.InspectionStage),
			PrimaryDefectTypeID: defectTypeID,
			Severity:            r.Severity,
			Disposition:         r.Disposition,
			InspectorID:         r.InspectorID,
			InspectedAt:         r.InspectedAt.Format(rfc3339Date),
		})
	}
	return marshalOrValidationErr(&staged)
}

// ExportAttendance renders committed attendance entries back to CSV.
func ExportAttendance(rows []*domain.AttendanceEntry) ([]byte, error) {
	staged := make([]attendanceStagingRow, 0, len(rows))
	for _, r := range rows {
		absenceReason := ""
		if r.AbsenceReason != nil {
			absenceReason = *r.AbsenceReason
		}
		staged = append(staged, attendanceStagingRow{
			ClientID:       r.ClientID,
			EmployeeID:     r.EmployeeID,
			AttendanceDate: r.AttendanceDate.Format("2006-01-02"),
			ShiftID:        r.ShiftID,
			Status:         string(r.Status),
			AbsenceReason:  absenceReason,
			IsExcused:      boolToStr(r.IsExcused),
			ScheduledHours: ftoa(r.ScheduledHours),
			ActualHours:    ftoa(r.ActualHours),
		})
	}
	return marshalOrValidationErr(&staged)
}

const rfc3339Date = "2006-01-02T15:04:05Z07:00"

func marshalOrValidationErr(staged interface{}) ([]byte, error) {
	out, err := gocsv.MarshalBytes(staged)
	if err != nil {
		return nil, apperrors.Infra("marshal csv export", err)
	}
	return out, nil
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolToStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
