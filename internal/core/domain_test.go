package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateFormatting(t *testing.T) {
	d, err := ParseDate("2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2025-06-15" || d.MonthKey() != "2025-06" {
		t.Fatalf("got %s / %s", d.String(), d.MonthKey())
	}
	if _, err := ParseDate("15/06/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if (Date{}).MonthKey() != "" {
		t.Fatal("zero date must have no month key")
	}
}

func TestParseRecurrenceKind(t *testing.T) {
	cases := []struct {
		in   string
		want RecurrenceKind
		ok   bool
	}{
		{"", RecurrenceNone, true},
		{"none", RecurrenceNone, true},
		{"Monthly", Monthly, true},
		{" weekly ", Weekly, true},
		{"fortnightly", RecurrenceNone, false},
	}
	for _, tc := range cases {
		got, err := ParseRecurrenceKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q err=%v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRecurrence) {
			t.Fatalf("%q: expected ErrInvalidRecurrence, got %v", tc.in, err)
		}
	}
}

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestExpenseInputNormalizeDefaults(t *testing.T) {
	today := NewDate(2025, 6, 20)
	rec, err := ExpenseInput{Title: " Coffee ", Amount: amountPtr("3.5")}.Normalize(today)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if rec.Title != "Coffee" {
		t.Errorf("title not trimmed: %q", rec.Title)
	}
	if rec.Category != DefaultCategory || rec.PaymentMethod != DefaultPaymentMethod {
		t.Errorf("defaults not applied: %q %q", rec.Category, rec.PaymentMethod)
	}
	if rec.Date != today {
		t.Errorf("date default: got %s", rec.Date)
	}
	if rec.Note != "" || rec.IsRecurring || rec.RecurrenceType != RecurrenceNone {
		t.Errorf("unexpected recurrence defaults: %+v", rec)
	}
	if rec.Amount.Cents != 350 {
		t.Errorf("amount: got %d", rec.Amount.Cents)
	}
}

func TestExpenseInputNormalizeRecurrence(t *testing.T) {
	today := NewDate(2025, 6, 20)

	rec, err := ExpenseInput{Title: "Rent", Amount: amountPtr("900"), IsRecurring: true, RecurrenceType: "monthly"}.Normalize(today)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.StartsSeries() {
		t.Fatal("monthly recurring record should start a series")
	}

	// A kind without the flag is dropped, the flag governs.
	rec, err = ExpenseInput{Title: "Rent", Amount: amountPtr("900"), RecurrenceType: "monthly"}.Normalize(today)
	if err != nil {
		t.Fatal(err)
	}
	if rec.RecurrenceType != RecurrenceNone || rec.StartsSeries() {
		t.Fatalf("non-recurring record kept kind %q", rec.RecurrenceType)
	}

	_, err = ExpenseInput{Title: "Rent", Amount: amountPtr("900"), IsRecurring: true, RecurrenceType: "hourly"}.Normalize(today)
	if !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected ErrInvalidRecurrence, got %v", err)
	}
}

func TestExpenseInputNormalizeErrors(t *testing.T) {
	today := NewDate(2025, 6, 20)
	cases := []struct {
		name string
		in   ExpenseInput
		want error
	}{
		{"missing amount", ExpenseInput{Title: "a"}, ErrMissingAmount},
		{"negative amount", ExpenseInput{Title: "a", Amount: amountPtr("-0.01")}, ErrInvalidAmount},
		{"empty title", ExpenseInput{Title: "  ", Amount: amountPtr("1")}, ErrEmptyTitle},
		{"long title", ExpenseInput{Title: strings.Repeat("x", MaxTitleLength+1), Amount: amountPtr("1")}, ErrTitleTooLong},
		{"bad date", ExpenseInput{Title: "a", Amount: amountPtr("1"), Date: "yesterday"}, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Normalize(today)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestExpenseInputTitleCountsCharacters(t *testing.T) {
	today := NewDate(2025, 6, 20)
	title := strings.Repeat("é", MaxTitleLength)
	rec, err := ExpenseInput{Title: title, Amount: amountPtr("1")}.Normalize(today)
	if err != nil {
		t.Fatalf("expected %d two-byte characters to be accepted, got %v", MaxTitleLength, err)
	}
	if rec.Title != title {
		t.Fatalf("title changed: %q", rec.Title)
	}

	_, err = ExpenseInput{Title: title + "é", Amount: amountPtr("1")}.Normalize(today)
	if !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}
}

func TestRecurrenceSeriesOccurrence(t *testing.T) {
	s := RecurrenceSeries{
		ID: "s1", OwnerID: "u1", Title: "Gym", Amount: Money{Cents: 2500},
		Category: "Health", PaymentMethod: "Card", Kind: Monthly, AnchorDay: 31,
		NextDate: NewDate(2025, 2, 28), Active: true,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid series, got %v", err)
	}
	if !s.Due(NewDate(2025, 2, 28)) || s.Due(NewDate(2025, 2, 27)) {
		t.Fatal("due check is off by one")
	}

	now := time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC)
	occ := s.Occurrence("e9", s.NextDate, now)
	if occ.SeriesID != "s1" || occ.OwnerID != "u1" || occ.IsRecurring || occ.RecurrenceType != RecurrenceNone {
		t.Fatalf("unexpected occurrence: %+v", occ)
	}
	if err := occ.Validate(); err != nil {
		t.Fatalf("occurrence should be valid: %v", err)
	}

	s.Active = false
	if s.Due(NewDate(2026, 1, 1)) {
		t.Fatal("stopped series must never be due")
	}
}
