package model

import (
	"fmt"
	"time"
)

// Event is one extracted shift. Start and End are naive local wall-clock
// times; End is always strictly after Start.
type Event struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
}

// PreviewLine renders the event the way the schedule preview shows it:
//
//	11.02.2026 17:45 – 22:15 | Kasse - Total Kriftel
func (e Event) PreviewLine() string {
	return fmt.Sprintf("%s – %s | %s", e.Start.Format("02.01.2006 15:04"), e.End.Format("15:04"), e.Title)
}

// MonthYearHint is what the detector could infer from the whole text.
// A nil field means "not found".
type MonthYearHint struct {
	Year  *int
	Month *int
}

// Resolve fills missing parts from the fallback instant.
func (h MonthYearHint) Resolve(now time.Time) (year, month int) {
	year, month = now.Year(), int(now.Month())
	if h.Year != nil {
		year = *h.Year
	}
	if h.Month != nil {
		month = *h.Month
	}
	return year, month
}
