package export

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtrack/internal/core"
)

func TestBuildDocumentLines(t *testing.T) {
	recs := []core.ExpenseRecord{
		{Title: "Groceries", Amount: core.MoneyFromCents(4250), Category: "Food", Date: core.NewDate(2025, 6, 3), PaymentMethod: "Card", Note: "weekly"},
		{Title: "Bus", Amount: core.MoneyFromCents(300), Category: "Transport", Date: core.NewDate(2025, 6, 4), PaymentMethod: "Cash"},
	}

	doc := BuildDocument(recs, "2025-06-01", "2025-06-30")

	assert.Equal(t, "Expense Summary", doc.Title)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "1. Groceries | $42.50 | Food | 2025-06-03 | Card | weekly", doc.Lines[0])
	assert.Equal(t, "2. Bus | $3.00 | Transport | 2025-06-04 | Cash | ", doc.Lines[1])
	assert.Equal(t, "45.50", doc.Total)
}

func TestRenderHTML(t *testing.T) {
	doc := BuildDocument([]core.ExpenseRecord{
		{Title: "<b>Tea</b>", Amount: core.MoneyFromCents(150), Category: "Food", Date: core.NewDate(2025, 6, 3), PaymentMethod: "Cash"},
	}, "2025-06-01", "2025-06-30")

	html, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Expense Summary</h1>")
	assert.Contains(t, html, "From: 2025-06-01 To: 2025-06-30")
	assert.Contains(t, html, "&lt;b&gt;Tea&lt;/b&gt;", "titles must be escaped")
	assert.NotContains(t, html, "<b>Tea</b>")
}

func TestRenderHTMLEmpty(t *testing.T) {
	html, err := RenderHTML(BuildDocument(nil, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	assert.Contains(t, html, "No expenses in this period.")
	assert.False(t, strings.Contains(html, "<ol"))
}

func TestChromeRendererRejectsEmptyHTML(t *testing.T) {
	r := NewChromeRenderer(ChromeConfig{RemoteURL: "ws://127.0.0.1:0"})
	defer r.Close()
	_, err := r.RenderPDF(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
