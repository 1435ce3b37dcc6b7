// Package render formats API data for the terminal client with lipgloss.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"spendtrack/internal/analysis"
	"spendtrack/internal/core"
	"spendtrack/internal/outbox"
	"spendtrack/internal/services"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorMuted  = lipgloss.Color("#6F6E69")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	dimStyle    = lipgloss.NewStyle().Foreground(colorBorder)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorOrange)
	errStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// Table is a bordered text table. The first column is left-aligned and
// the rest are right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func Title(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

func RenderTable(t Table) string {
	cols := len(t.Headers)
	if cols == 0 && len(t.Rows) > 0 {
		cols = len(t.Rows[0])
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < cols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right) + "\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < cols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│") + "\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

// Money prints an amount with a dollar sign and two decimals.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func Expenses(recs []core.ExpenseRecord) string {
	if len(recs) == 0 {
		return mutedStyle.Render("  No expenses found.") + "\n"
	}
	t := Table{Headers: []string{"Date", "Title", "Category", "Amount", "ID"}}
	total := decimal.Zero
	for _, r := range recs {
		title := r.Title
		if r.SeriesID != "" {
			title += " ↻"
		}
		t.Rows = append(t.Rows, []string{r.Date.String(), title, r.Category, Money(r.Amount.Decimal()), r.ID})
		total = total.Add(r.Amount.Decimal())
	}
	t.Rows = append(t.Rows, []string{"Total", "", "", Money(total), ""})
	return RenderTable(t)
}

// Dashboard renders totals, goal progress, alerts and insights.
func Dashboard(v services.DashboardView) string {
	var b strings.Builder
	b.WriteString(Title("Spending summary "+v.Month) + "\n\n")

	fmt.Fprintf(&b, "  %s %s   %s %s\n\n",
		mutedStyle.Render("This month:"), valueStyle.Render(Money(v.CurrentMonth)),
		mutedStyle.Render("Last month:"), valueStyle.Render(Money(v.PreviousMonth)))

	if g := v.Goal; g != nil {
		fmt.Fprintf(&b, "  %s %s of %s  %s\n\n",
			mutedStyle.Render("Goal:"), Money(g.Total), Money(g.Goal), goalStyle(g.Tier).Render(ProgressBar(g.Percent, 30)+" "+g.Percent.StringFixed(1)+"%"))
	}

	cats := Table{Title: "By category", Headers: []string{"Category", "Total", "Share"}}
	for _, c := range v.Totals.Categories {
		share := decimal.Zero
		if v.Totals.Grand.IsPositive() {
			share = c.Total.Div(v.Totals.Grand).Mul(decimal.NewFromInt(100))
		}
		cats.Rows = append(cats.Rows, []string{c.Name, Money(c.Total), share.StringFixed(1) + "%"})
	}
	if len(cats.Rows) > 0 {
		b.WriteString(RenderTable(cats) + "\n")
	}

	months := Table{Title: "By month", Headers: []string{"Month", "Total"}}
	for _, m := range v.Totals.Months {
		months.Rows = append(months.Rows, []string{m.Key, Money(m.Total)})
	}
	if len(months.Rows) > 0 {
		b.WriteString(RenderTable(months) + "\n")
	}

	for _, a := range v.Alerts {
		b.WriteString("  " + warnStyle.Render("! "+a) + "\n")
	}
	for _, in := range v.Insights {
		b.WriteString("  " + okStyle.Render("• ") + valueStyle.Render(in) + "\n")
	}
	return b.String()
}

func goalStyle(t analysis.GoalTier) lipgloss.Style {
	switch t {
	case analysis.GoalExceeded:
		return errStyle
	case analysis.GoalCaution:
		return warnStyle
	}
	return okStyle
}

// ProgressBar draws percent (0-100) as a bar of width cells.
func ProgressBar(percent decimal.Decimal, width int) string {
	if width <= 0 {
		return ""
	}
	p := percent
	if p.IsNegative() {
		p = decimal.Zero
	}
	if p.GreaterThan(decimal.NewFromInt(100)) {
		p = decimal.NewFromInt(100)
	}
	filled := int(p.Mul(decimal.NewFromInt(int64(width))).Div(decimal.NewFromInt(100)).IntPart())
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func Series(series []core.RecurrenceSeries) string {
	if len(series) == 0 {
		return mutedStyle.Render("  No recurring series.") + "\n"
	}
	t := Table{Headers: []string{"Title", "Kind", "Amount", "Next", "Status", "ID"}}
	for _, s := range series {
		status := "active"
		if !s.Active {
			status = "stopped"
		}
		t.Rows = append(t.Rows, []string{s.Title, string(s.Kind), Money(s.Amount.Decimal()), s.NextDate.String(), status, s.ID})
	}
	return RenderTable(t)
}

// SyncReport summarizes an outbox drain.
func SyncReport(r outbox.SyncReport, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %d   %s %d   %s %d\n",
		mutedStyle.Render("sent"), r.Sent,
		mutedStyle.Render("rejected"), r.Rejected,
		mutedStyle.Render("pending"), r.Remaining)
	if err != nil {
		b.WriteString("  " + errStyle.Render("sync stopped: "+err.Error()) + "\n")
	}
	return b.String()
}

func Success(msg string) string { return "  " + okStyle.Render("✓ "+msg) + "\n" }
func Warning(msg string) string { return "  " + warnStyle.Render("! "+msg) + "\n" }
func Muted(msg string) string   { return "  " + mutedStyle.Render(msg) + "\n" }
