package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"spendtrack/internal/analysis"
	"spendtrack/internal/core"
	"spendtrack/internal/outbox"
	"spendtrack/internal/services"
)

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Name", "Total"},
		Rows:    [][]string{{"Food", "$150.00"}, {"Transport", "$10.00"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 6)
	for _, l := range lines[1:] {
		assert.Equal(t, len([]rune(lines[0])), len([]rune(l)), "row %q", l)
	}
	assert.Contains(t, out, "Transport")
	assert.Contains(t, out, " $10.00 ")
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Empty(t, RenderTable(Table{}))
}

func TestExpensesShowsTotal(t *testing.T) {
	out := Expenses([]core.ExpenseRecord{
		{ID: "e1", Title: "Lunch", Category: "Food", Amount: core.MoneyFromCents(1250), Date: core.NewDate(2025, 6, 3)},
		{ID: "e2", Title: "Rent", Category: "Home", Amount: core.MoneyFromCents(80000), Date: core.NewDate(2025, 6, 1), SeriesID: "s1"},
	})
	assert.Contains(t, out, "2025-06-03")
	assert.Contains(t, out, "Rent ↻")
	assert.Contains(t, out, "$812.50")

	assert.Contains(t, Expenses(nil), "No expenses found.")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(decimal.NewFromInt(50), 10))
	assert.Equal(t, "██████████", ProgressBar(decimal.NewFromInt(140), 10))
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(decimal.NewFromInt(-3), 10))
	assert.Empty(t, ProgressBar(decimal.NewFromInt(50), 0))
}

func TestDashboard(t *testing.T) {
	v := services.DashboardView{Dashboard: analysis.Dashboard{
		Month:        "2025-06",
		CurrentMonth: decimal.NewFromInt(160),
		Totals: analysis.Totals{
			Months:     []analysis.MonthTotal{{Key: "2025-06", Total: decimal.NewFromInt(160)}},
			Categories: []analysis.CategoryTotal{{Name: "Food", Total: decimal.NewFromInt(150)}, {Name: "Transport", Total: decimal.NewFromInt(10)}},
			Grand:      decimal.NewFromInt(160),
		},
		Goal: &analysis.GoalProgress{
			Goal: decimal.NewFromInt(200), Total: decimal.NewFromInt(160),
			Percent: decimal.NewFromInt(80), Tier: analysis.GoalOK,
		},
		Insights: []string{"Consider reducing your spending on Food (93.8% of total)."},
	}}
	out := Dashboard(v)
	assert.Contains(t, out, "Spending summary 2025-06")
	assert.Contains(t, out, "$160.00 of $200.00")
	assert.Contains(t, out, "93.8%")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "Consider reducing your spending on Food")
}

func TestSeries(t *testing.T) {
	out := Series([]core.RecurrenceSeries{{
		ID: "s1", Title: "Gym", Kind: core.Monthly, Amount: core.MoneyFromCents(2500),
		NextDate: core.NewDate(2025, 7, 1), Active: false,
	}})
	assert.Contains(t, out, "monthly")
	assert.Contains(t, out, "stopped")
	assert.Contains(t, out, "2025-07-01")
}

func TestSyncReport(t *testing.T) {
	out := SyncReport(outbox.SyncReport{Sent: 2, Remaining: 1}, errors.New("connection refused"))
	assert.Contains(t, out, "sent 2")
	assert.Contains(t, out, "pending 1")
	assert.Contains(t, out, "connection refused")
}
