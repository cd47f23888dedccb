package services

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the accepted date input formats: HTML5 date inputs first,
// then the dd/mm/yyyy form used in the office
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseDate parses a date string (YYYY-MM-DD or DD/MM/YYYY) as UTC midnight
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, dateStr); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD or DD/MM/YYYY")
}

// ParseDateTime parses a datetime-local input value, falling back to ParseDate
func ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return ParseDate(value)
}

// ParseOptionalDate returns nil for an empty value
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
