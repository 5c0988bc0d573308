package types

import "time"

// FormatTime renders t as RFC3339 in UTC, the format every DTO exposes
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatTimePtr is FormatTime for optional timestamps
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// DaysBetween returns the number of whole days elapsed from start to end,
// negative when end is before start
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
