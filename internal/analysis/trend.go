package analysis

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

type TrendTier string

const (
	TrendHighIncrease   TrendTier = "high-increase"
	TrendMildIncrease   TrendTier = "mild-increase"
	TrendDecreaseOrFlat TrendTier = "decrease-or-flat"
)

var highIncreaseThreshold = decimal.NewFromInt(30)

type Trend struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Delta    decimal.Decimal `json:"deltaPercent"`
	Tier     TrendTier       `json:"tier"`
}

// EvaluateTrend compares this month with the previous one. It reports false
// when the previous month is zero, since there is no baseline to compare to.
func EvaluateTrend(current, previous decimal.Decimal) (Trend, bool) {
	if previous.IsZero() {
		return Trend{}, false
	}
	delta := current.Sub(previous).Div(previous).Mul(hundred)
	t := Trend{Current: current, Previous: previous, Delta: delta, Tier: TrendDecreaseOrFlat}
	switch {
	case delta.GreaterThan(highIncreaseThreshold):
		t.Tier = TrendHighIncrease
	case delta.IsPositive():
		t.Tier = TrendMildIncrease
	}
	return t, true
}

// Message renders the spending alert for increases, empty otherwise.
func (t Trend) Message() string {
	switch t.Tier {
	case TrendHighIncrease:
		return fmt.Sprintf("You've spent %s%% more this month compared to last month!", t.Delta.StringFixed(1))
	case TrendMildIncrease:
		return fmt.Sprintf("Your spending is %s%% higher than last month.", t.Delta.StringFixed(1))
	}
	return ""
}

// CurrentMonthKey is the YYYY-MM key of the month containing t.
func CurrentMonthKey(t time.Time) string {
	return now.With(t).BeginningOfMonth().Format(core.MonthKeyLayout)
}

// PreviousMonthKey is the key of the calendar month before t's month,
// rolling January back to December of the prior year.
func PreviousMonthKey(t time.Time) string {
	return now.With(t).BeginningOfMonth().AddDate(0, 0, -1).Format(core.MonthKeyLayout)
}
