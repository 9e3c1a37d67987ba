package pipeline

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/umsgroup/adreal-sync/pkg/adreal"
)

// ReportingMonth identifies one calendar-month reporting period.
type ReportingMonth struct {
	Year  int
	Month time.Month
}

// PreviousMonth returns the calendar month before now. Scheduled runs
// always report on the month that just closed.
func PreviousMonth(now time.Time) ReportingMonth {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := firstOfCurrent.AddDate(0, 0, -1)
	return ReportingMonth{Year: prev.Year(), Month: prev.Month()}
}

// NewReportingMonth validates an explicit backfill target.
func NewReportingMonth(year, month int) (ReportingMonth, error) {
	if month < 1 || month > 12 {
		return ReportingMonth{}, eris.Errorf("pipeline: month %d out of range", month)
	}
	if year < 2000 || year > 2100 {
		return ReportingMonth{}, eris.Errorf("pipeline: year %d out of range", year)
	}
	return ReportingMonth{Year: year, Month: time.Month(month)}, nil
}

// FirstDay returns the first calendar day of the month in UTC.
func (m ReportingMonth) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Range returns the API period range covering the whole month.
func (m ReportingMonth) Range() adreal.PeriodRange {
	return adreal.MonthRange(m.Year, m.Month)
}

// Label returns the API period label for this month, e.g. "month_20250801".
func (m ReportingMonth) Label() string {
	return m.Range().Label()
}

func (m ReportingMonth) String() string {
	return m.FirstDay().Format("2006-01")
}
