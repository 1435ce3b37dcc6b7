// Package sheets defines the spreadsheet mirror that receives expense events.
package sheets

import (
	"context"

	"spendtrack/internal/core"
)

// Columns is the header row of every mirrored expenses sheet.
var Columns = []string{"Date", "Title", "Amount", "Category", "PaymentMethod", "Note", "ID"}

// Mirror keeps a copy of expense records outside the database.
type Mirror interface {
	// Upsert writes the record's row, replacing an existing row with the same ID.
	Upsert(ctx context.Context, e core.ExpenseRecord) error
	// Remove deletes the record's row. Removing an unknown record is not an error.
	Remove(ctx context.Context, e core.ExpenseRecord) error
}

// Row renders a record in Columns order.
func Row(e core.ExpenseRecord) []string {
	return []string{
		e.Date.String(),
		e.Title,
		e.Amount.String(),
		e.Category,
		e.PaymentMethod,
		e.Note,
		e.ID,
	}
}
