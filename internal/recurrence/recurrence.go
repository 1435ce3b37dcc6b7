// Package recurrence computes next-occurrence dates for recurring expenses.
//
// Each recurrence kind has its own Stepper strategy. Month and year steps
// clamp to the last day of the target month: 2025-01-31 monthly is
// 2025-02-28, and 2024-02-29 yearly is 2025-02-28. Dates never overflow
// into the following month.
package recurrence

import (
	"time"

	"spendtrack/internal/core"
)

// Stepper advances a date by one period of a recurrence kind.
// anchorDay is the day-of-month the series wants to land on; month-based
// steppers use it so a clamp in a short month does not stick.
type Stepper interface {
	Step(from core.Date, anchorDay int) core.Date
}

type DailyStepper struct{}

func (DailyStepper) Step(from core.Date, _ int) core.Date {
	return core.Date{Time: from.AddDate(0, 0, 1)}
}

type WeeklyStepper struct{}

func (WeeklyStepper) Step(from core.Date, _ int) core.Date {
	return core.Date{Time: from.AddDate(0, 0, 7)}
}

type MonthlyStepper struct{}

func (MonthlyStepper) Step(from core.Date, anchorDay int) core.Date {
	return clamped(from.Year(), time.Month(from.Month())+1, anchorDay)
}

type YearlyStepper struct{}

func (YearlyStepper) Step(from core.Date, anchorDay int) core.Date {
	return clamped(from.Year()+1, time.Month(from.Month()), anchorDay)
}

var steppers = map[core.RecurrenceKind]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// StepperFor returns the strategy for kind. none and unknown kinds have none.
func StepperFor(kind core.RecurrenceKind) (Stepper, bool) {
	s, ok := steppers[kind]
	return s, ok
}

// Next returns the occurrence following date for kind. The boolean is false
// for none or an unrecognized kind, which is a normal "no next occurrence"
// result rather than an error.
func Next(date core.Date, kind core.RecurrenceKind) (core.Date, bool) {
	return NextAnchored(date, kind, date.Day())
}

// NextAnchored is Next for a series whose preferred day-of-month is anchorDay.
func NextAnchored(date core.Date, kind core.RecurrenceKind, anchorDay int) (core.Date, bool) {
	s, ok := StepperFor(kind)
	if !ok || date.IsZero() {
		return core.Date{}, false
	}
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = date.Day()
	}
	return s.Step(date, anchorDay), true
}

// DueDates lists every occurrence from first up to and including until,
// capped at limit entries. It also returns the cursor that follows the last
// listed date.
func DueDates(first core.Date, kind core.RecurrenceKind, anchorDay int, until core.Date, limit int) ([]core.Date, core.Date) {
	var out []core.Date
	cur := first
	for !cur.IsZero() && !cur.After(until.Time) && len(out) < limit {
		out = append(out, cur)
		next, ok := NextAnchored(cur, kind, anchorDay)
		if !ok {
			return out, core.Date{}
		}
		cur = next
	}
	return out, cur
}

// clamped builds year/month/day, pinning day to the month's last day.
// month may be 13; time.Date normalizes it into the next year.
func clamped(year int, month time.Month, day int) core.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}
