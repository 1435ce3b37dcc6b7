package analysis

import "github.com/shopspring/decimal"

type GoalTier string

const (
	GoalOK       GoalTier = "ok"
	GoalCaution  GoalTier = "caution"
	GoalExceeded GoalTier = "exceeded"
)

var (
	hundred          = decimal.NewFromInt(100)
	cautionThreshold = decimal.NewFromInt(80)
)

// GoalProgress compares a month's spend against the monthly goal.
// Percent is clamped to 100; Unclamped keeps the raw ratio.
type GoalProgress struct {
	Goal      decimal.Decimal `json:"goal"`
	Total     decimal.Decimal `json:"total"`
	Percent   decimal.Decimal `json:"percent"`
	Unclamped decimal.Decimal `json:"unclamped"`
	Tier      GoalTier        `json:"tier"`
}

// EvaluateGoal computes progress toward goal. A goal of zero or less means
// no goal is set and yields 0% with tier ok.
func EvaluateGoal(total, goal decimal.Decimal) GoalProgress {
	p := GoalProgress{Goal: goal, Total: total, Percent: decimal.Zero, Unclamped: decimal.Zero, Tier: GoalOK}
	if !goal.IsPositive() {
		return p
	}
	p.Unclamped = total.Div(goal).Mul(hundred)
	p.Percent = decimal.Min(hundred, p.Unclamped)
	switch {
	case p.Unclamped.GreaterThan(hundred):
		p.Tier = GoalExceeded
	case p.Percent.GreaterThan(cautionThreshold):
		p.Tier = GoalCaution
	}
	return p
}

// Message is the user-facing warning for the tier, empty when ok.
func (p GoalProgress) Message() string {
	switch p.Tier {
	case GoalExceeded:
		return "Warning: You have exceeded your monthly goal!"
	case GoalCaution:
		return "Caution: You are close to your monthly goal."
	}
	return ""
}
