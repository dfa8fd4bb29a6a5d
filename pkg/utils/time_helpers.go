package utils

import (
	"time"

	"github.com/aarondl/null/v8"
)

// TimestampLayout - фиксированный формат времени во всех ответах и событиях (UTC, микросекунды).
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func NullTimeToString(nt null.Time) *string {
	if !nt.Valid {
		return nil
	}
	formatted := FormatTimestamp(nt.Time)
	return &formatted
}
