package domain

import (
	"fmt"
	"time"
)

// WeekKey ISO-8601 метка недели вида 2025-W10, год берётся ISO (может отличаться от календарного)
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
