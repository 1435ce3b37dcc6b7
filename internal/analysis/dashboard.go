package analysis

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard is everything derived from one owner's records for the month
// containing Now.
type Dashboard struct {
	Month         string          `json:"month"`
	Totals        Totals          `json:"totals"`
	CurrentMonth  decimal.Decimal `json:"currentMonth"`
	PreviousMonth decimal.Decimal `json:"previousMonth"`
	Goal          *GoalProgress   `json:"goal,omitempty"`
	Trend         *Trend          `json:"trend,omitempty"`
	Alerts        []string        `json:"alerts"`
	Insights      []string        `json:"insights"`
}

// BuildDashboard runs the aggregator and feeds the goal tracker, trend
// analyzer and insight generator from the same totals.
func BuildDashboard(entries []Entry, goal decimal.Decimal, t time.Time) Dashboard {
	totals := Aggregate(entries)
	key := CurrentMonthKey(t)

	d := Dashboard{
		Month:         key,
		Totals:        totals,
		CurrentMonth:  totals.MonthTotal(key),
		PreviousMonth: totals.MonthTotal(PreviousMonthKey(t)),
		Alerts:        []string{},
	}

	if goal.IsPositive() {
		g := EvaluateGoal(d.CurrentMonth, goal)
		d.Goal = &g
		if msg := g.Message(); msg != "" {
			d.Alerts = append(d.Alerts, msg)
		}
	}
	if tr, ok := EvaluateTrend(d.CurrentMonth, d.PreviousMonth); ok {
		d.Trend = &tr
		if msg := tr.Message(); msg != "" {
			d.Alerts = append(d.Alerts, msg)
		}
	}

	d.Insights = GenerateInsights(totals, goal, d.CurrentMonth)
	return d
}
