package ingestion

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDecimal strips thousands separators and parses a `.`-separated
// decimal.
func parseDecimal(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func parseIntField(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.Atoi(s)
}

func parseBoolField(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n", "":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// parseDate accepts ISO YYYY-MM-DD, or slash-separated DD/MM/YYYY and
// MM/DD/YYYY disambiguated by the rule "first token > 12 means it's a day".
// Ambiguous dates (both tokens <= 12) default to MM/DD/YYYY.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
	}
	first, err1 := strconv.Atoi(parts[0])
	second, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
	}
	var day, month int
	if first > 12 {
		day, month = first, second
	} else {
		month, day = first, second
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range: %q", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// parseDateTime accepts RFC 3339 and ISO YYYY-MM-DD dates with a trailing
// "T15:04:05" / " 15:04:05" time-of-day component, and otherwise falls
// back to parseDate's date-only formats (slash-separated dates take no
// time of day); callers that only need the date (e.g. attendance_date)
// should use parseDate instead.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return parseDate(s)
}
