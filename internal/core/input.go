package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseInput is the submitted shape of an expense. Every field except
// Title and Amount is optional and falls back to its default in Normalize.
type ExpenseInput struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Amount         *decimal.Decimal `json:"amount" validate:"required"`
	Category       string           `json:"category,omitempty"`
	Date           string           `json:"date,omitempty"`
	Note           string           `json:"note,omitempty"`
	PaymentMethod  string           `json:"paymentMethod,omitempty"`
	IsRecurring    bool             `json:"isRecurring,omitempty"`
	RecurrenceType string           `json:"recurrenceType,omitempty"`
}

// ExpenseFilter narrows a listing of one owner's records.
type ExpenseFilter struct {
	Category string
	From     Date
	To       Date
}

// Normalize applies defaults and validates the input, returning a record
// without identity or ownership. today is used when Date is empty.
func (in ExpenseInput) Normalize(today Date) (ExpenseRecord, error) {
	if in.Amount == nil {
		return ExpenseRecord{}, ErrMissingAmount
	}
	amount, err := MoneyFromDecimal(*in.Amount)
	if err != nil {
		return ExpenseRecord{}, err
	}

	rec := ExpenseRecord{
		Title:          strings.TrimSpace(in.Title),
		Amount:         amount,
		Category:       orDefault(in.Category, DefaultCategory),
		Date:           today,
		Note:           in.Note,
		PaymentMethod:  orDefault(in.PaymentMethod, DefaultPaymentMethod),
		IsRecurring:    in.IsRecurring,
		RecurrenceType: RecurrenceNone,
	}
	if strings.TrimSpace(in.Date) != "" {
		if rec.Date, err = ParseDate(in.Date); err != nil {
			return ExpenseRecord{}, err
		}
	}
	if in.IsRecurring {
		if rec.RecurrenceType, err = ParseRecurrenceKind(in.RecurrenceType); err != nil {
			return ExpenseRecord{}, err
		}
	}
	if err := rec.Validate(); err != nil {
		return ExpenseRecord{}, err
	}
	return rec, nil
}

// InputFromRecord is the inverse of Normalize, used when replaying or
// resubmitting a stored record.
func InputFromRecord(r ExpenseRecord) ExpenseInput {
	amount := r.Amount.Decimal()
	return ExpenseInput{
		Title:          r.Title,
		Amount:         &amount,
		Category:       r.Category,
		Date:           r.Date.String(),
		Note:           r.Note,
		PaymentMethod:  r.PaymentMethod,
		IsRecurring:    r.IsRecurring,
		RecurrenceType: string(r.RecurrenceType),
	}
}

// Today is the default record date for the given clock reading.
func Today(now time.Time) Date {
	return DateOf(now)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
