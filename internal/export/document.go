// Package export renders expense summaries as HTML and PDF documents.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
	"spendtrack/web"
)

const (
	DocumentTitle = "Expense Summary"
	Filename      = "expenses.pdf"
	ContentType   = "application/pdf"
)

// Document is the printable summary of a set of records.
type Document struct {
	Title string
	From  string
	To    string
	Lines []string
	Total string
}

// BuildDocument formats one line per record, in the given order:
// "{i}. {title} | ${amount} | {category} | {date} | {paymentMethod} | {note}".
func BuildDocument(records []core.ExpenseRecord, from, to string) Document {
	doc := Document{Title: DocumentTitle, From: from, To: to, Lines: make([]string, 0, len(records))}
	total := decimal.Zero
	for i, r := range records {
		doc.Lines = append(doc.Lines, fmt.Sprintf("%d. %s | $%s | %s | %s | %s | %s",
			i+1, r.Title, r.Amount.String(), r.Category, r.Date.String(), r.PaymentMethod, r.Note))
		total = total.Add(r.Amount.Decimal())
	}
	doc.Total = total.StringFixed(2)
	return doc
}

var (
	tmplOnce sync.Once
	tmpl     *template.Template
	tmplErr  error
)

func exportTemplate() (*template.Template, error) {
	tmplOnce.Do(func() {
		tmpl, tmplErr = template.ParseFS(web.TemplatesFS, "templates/export.html")
	})
	return tmpl, tmplErr
}

// RenderHTML executes the embedded export template for doc.
func RenderHTML(doc Document) (string, error) {
	t, err := exportTemplate()
	if err != nil {
		return "", fmt.Errorf("parse export template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render export template: %w", err)
	}
	return buf.String(), nil
}
