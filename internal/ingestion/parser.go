package ingestion

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// productionStagingRow, and its siblings below, bind the CSV header to
// canonical column names via gocsv's struct-tag matching. Fields are kept
// as strings so type coercion (date disambiguation, decimal normalization)
// happens in validate.go under this pipeline's own rules rather than
// gocsv's generic decoder.
type productionStagingRow struct {
	ClientID          string `csv:"client_id"`
	WorkOrderID       string `csv:"work_order_id"`
	ProductID         string `csv:"product_id"`
	ShiftID           string `csv:"shift_id"`
	ProductionDate    string `csv:"production_date"`
	UnitsProduced     string `csv:"units_produced"`
	RunTimeHours      string `csv:"run_time_hours"`
	EmployeesAssigned string `csv:"employees_assigned"`
	DefectCount       string `csv:"defect_count"`
	ScrapCount        string `csv:"scrap_count"`
}

type downtimeStagingRow struct {
	ClientID    string `csv:"client_id"`
	EquipmentID string `csv:"equipment_id"`
	ReasonCode  string `csv:"reason_code"`
	Category    string `csv:"category"`
	StartAt     string `csv:"start_at"`
	EndAt       string `csv:"end_at"`
}

type qualityStagingRow struct {
	ClientID            string `csv:"client_id"`
	WorkOrderID          string `csv:"work_order_id"`
	ProductID            string `csv:"product_id"`
	InspectedQty         string `csv:"inspected_qty"`
	DefectQty            string `csv:"defect_qty"`
	RejectedQty          string `csv:"rejected_qty"`
	InspectionStage      string `csv:"inspection_stage"`
	PrimaryDefectTypeID  string `csv:"primary_defect_type_id"`
	Severity             string `csv:"severity"`
	Disposition          string `csv:"disposition"`
	InspectorID          string `csv:"inspector_id"`
	InspectedAt          string `csv:"inspected_at"`
}

type attendanceStagingRow struct {
	ClientID       string `csv:"client_id"`
	EmployeeID     string `csv:"employee_id"`
	AttendanceDate string `csv:"attendance_date"`
	ShiftID        string `csv:"shift_id"`
	Status         string `csv:"status"`
	AbsenceReason  string `csv:"absence_reason"`
	IsExcused      string `csv:"is_excused"`
	ScheduledHours string `csv:"scheduled_hours"`
	ActualHours    string `csv:"actual_hours"`
	ClockIn        string `csv:"clock_in"`
	ClockOut       string `csv:"clock_out"`
}

// normalizeColumn lowercases a header token and folds spaces/dashes to
// underscores, treating underscores as equivalent to spaces for
// case-insensitive column mapping.
func normalizeColumn(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// canonicalizeHeader rewrites only the header line of data to canonical
// column names, leaving the body untouched, and returns the canonical
// tokens for required/unknown-column checks. The header row must not
// itself contain an embedded newline inside a quoted field.
func canonicalizeHeader(data []byte) (tokens []string, rebuilt []byte, err error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	nl := bytes.IndexByte(data, '\n')
	headerLine := data
	rest := []byte{}
	if nl >= 0 {
		headerLine = data[:nl]
		rest = data[nl+1:]
	}
	headerLine = bytes.TrimRight(headerLine, "\r")

	r := csv.NewReader(bytes.NewReader(headerLine))
	raw, err := r.Read()
	if err != nil {
		return nil, nil, apperrors.Validation("header", "could not parse header row: "+err.Error())
	}
	if len(raw) == 0 {
		return nil, nil, apperrors.New(apperrors.KindValidation, "empty header row").WithDetails("code", "ERR_BAD_HEADER")
	}

	tokens = make([]string, len(raw))
	for i, col := range raw {
		tokens[i] = normalizeColumn(col)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tokens); err != nil {
		return nil, nil, apperrors.Infra("rewrite header", err)
	}
	w.Flush()
	buf.Write(rest)
	return tokens, buf.Bytes(), nil
}

// checkHeader validates required columns are present and reports any
// columns outside the kind's known set as warnings.
func checkHeader(kind Kind, tokens []string) (warnings []string, err error) {
	present := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		present[t] = true
	}
	for _, req := range requiredColumns[kind] {
		if !present[req] {
			return nil, apperrors.New(apperrors.KindValidation, "missing required column: "+req).
				WithDetails("code", "ERR_BAD_HEADER").WithDetails("column", req)
		}
	}
	known := make(map[string]bool, len(knownColumns[kind]))
	for _, k := range knownColumns[kind] {
		known[k] = true
	}
	for _, t := range tokens {
		if !known[t] {
			warnings = append(warnings, "unknown column: "+t)
		}
	}
	return warnings, nil
}

// decodeRows canonicalizes the header and binds every data row to the
// kind's staging struct via gocsv, returning each row's raw cell values
// alongside the staging struct for downstream coercion.
func decodeRows(kind Kind, data []byte) (warnings []string, raws []map[string]string, rows []interface{}, err error) {
	tokens, rebuilt, err := canonicalizeHeader(data)
	if err != nil {
		return nil, nil, nil, err
	}
	warnings, err = checkHeader(kind, tokens)
	if err != nil {
		return nil, nil, nil, err
	}

	switch kind {
	case KindProduction:
		var staged []productionStagingRow
		if err := gocsv.UnmarshalBytes(rebuilt, &staged); err != nil {
			return nil, nil, nil, apperrors.Validation("csv", err.Error())
		}
		for _, s := range staged {
			rows = append(rows, s)
			raws = append(raws, structToRawMap(s))
		}
	case KindDowntime:
		var staged []downtimeStagingRow
		if err := gocsv.UnmarshalBytes(rebuilt, &staged); err != nil {
			return nil, nil, nil, apperrors.Validation("csv", err.Error())
		}
		for _, s := range staged {
			rows = append(rows, s)
			raws = append(raws, structToRawMap(s))
		}
	case KindQuality:
		var staged []qualityStagingRow
		if err := gocsv.UnmarshalBytes(rebuilt, &staged); err != nil {
			return nil, nil, nil, apperrors.Validation("csv", err.Error())
		}
		for _, s := range staged {
			rows = append(rows, s)
			raws = append(raws, structToRawMap(s))
		}
	case KindAttendance:
		var staged []attendanceStagingRow
		if err := gocsv.UnmarshalBytes(rebuilt, &staged); err != nil {
			return nil, nil, nil, apperrors.Validation("csv", err.Error())
		}
		for _, s := range staged {
			rows = append(rows, s)
			raws = append(raws, structToRawMap(s))
		}
	default:
		return nil, nil, nil, apperrors.Validation("kind", "unknown ingestion kind")
	}
	return warnings, raws, rows, nil
}

func structToRawMap(v interface{}) map[string]string {
	rv := reflect.ValueOf(v)
	rt := rv.Type()
	out := make(map[string]string, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("csv")
		if tag == "" {
			continue
		}
		out[tag] = rv.Field(i).String()
	}
	return out
}
