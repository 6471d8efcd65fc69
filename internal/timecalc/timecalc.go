// Package timecalc formats durations and computes calendar ranges for
// reports.
package timecalc

import (
	"fmt"
	"time"

	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
)

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatHoursMinutes always prints both units, e.g. "0h 25m".
func FormatHoursMinutes(seconds int64) string {
	return fmt.Sprintf("%dh %dm", seconds/3600, seconds%3600/60)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Week returns the seven dates, Monday first, of the ISO week containing d.
func Week(d model.Date) []model.Date {
	wd := int(d.In(time.UTC).Weekday())
	if wd == 0 {
		wd = 7 // ISO Sunday
	}
	monday := d.AddDays(-(wd - 1))
	days := make([]model.Date, 7)
	for i := range days {
		days[i] = monday.AddDays(i)
	}
	return days
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(d model.Date) string {
	year, week := d.In(time.UTC).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
