package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const FallbackInsight = "Great job managing your expenses! Keep up the good work."

var (
	concentrationThreshold = decimal.NewFromInt(30)
	nearGoalRatio          = decimal.NewFromFloat(0.8)
)

// GenerateInsights returns spending suggestions in a fixed order: one per
// category above 30% of the grand total (category order), then at most one
// goal suggestion, then the fallback only when nothing else applied.
func GenerateInsights(t Totals, goal, monthTotal decimal.Decimal) []string {
	var out []string

	if t.Grand.IsPositive() {
		for _, c := range t.Categories {
			share := c.Total.Div(t.Grand).Mul(hundred)
			if share.GreaterThan(concentrationThreshold) {
				out = append(out, fmt.Sprintf("Consider reducing your spending on %s (%s%% of total).", c.Name, share.StringFixed(1)))
			}
		}
	}

	if goal.IsPositive() {
		switch {
		case monthTotal.GreaterThan(goal):
			out = append(out, fmt.Sprintf("You've exceeded your monthly goal by $%s.", monthTotal.Sub(goal).StringFixed(2)))
		case monthTotal.GreaterThan(goal.Mul(nearGoalRatio)):
			out = append(out, "You're close to your monthly goal. Consider reducing non-essential expenses.")
		}
	}

	if len(out) == 0 {
		out = append(out, FallbackInsight)
	}
	return out
}
