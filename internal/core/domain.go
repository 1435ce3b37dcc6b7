package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RecurrenceNone RecurrenceKind = "none"
	Daily          RecurrenceKind = "daily"
	Weekly         RecurrenceKind = "weekly"
	Monthly        RecurrenceKind = "monthly"
	Yearly         RecurrenceKind = "yearly"
)

const (
	DefaultCategory      = "General"
	DefaultPaymentMethod = "Cash"

	// DateLayout is the wire and storage format of record dates.
	DateLayout     = "2006-01-02"
	MonthKeyLayout = "2006-01"

	MaxTitleLength = 200
)

type (
	RecurrenceKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// ExpenseRecord is a single expense owned by exactly one user.
	ExpenseRecord struct {
		ID             string         `json:"id"`
		OwnerID        string         `json:"ownerId"`
		Title          string         `json:"title"`
		Amount         Money          `json:"amount"`
		Category       string         `json:"category"`
		Date           Date           `json:"date"`
		Note           string         `json:"note"`
		PaymentMethod  string         `json:"paymentMethod"`
		IsRecurring    bool           `json:"isRecurring"`
		RecurrenceType RecurrenceKind `json:"recurrenceType"`
		SeriesID       string         `json:"seriesId,omitempty"`
		CreatedAt      time.Time      `json:"createdAt"`
		UpdatedAt      time.Time      `json:"updatedAt"`
	}

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Details      string    `json:"details"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// RecurrenceSeries owns the template of a recurring expense and the
	// cursor of its next occurrence. The recurring worker advances NextDate.
	RecurrenceSeries struct {
		ID            string         `json:"id"`
		OwnerID       string         `json:"ownerId"`
		BaseExpenseID string         `json:"baseExpenseId"`
		Title         string         `json:"title"`
		Amount        Money          `json:"amount"`
		Category      string         `json:"category"`
		Note          string         `json:"note"`
		PaymentMethod string         `json:"paymentMethod"`
		Kind          RecurrenceKind `json:"kind"`
		AnchorDay     int            `json:"anchorDay"`
		NextDate      Date           `json:"nextDate"`
		Active        bool           `json:"active"`
		LastRunAt     *time.Time     `json:"lastRunAt,omitempty"`
		CreatedAt     time.Time      `json:"createdAt"`
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmptyTitle         = errors.New("empty title")
	ErrTitleTooLong       = fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	ErrMissingAmount      = errors.New("amount is required")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidRecurrence  = errors.New("invalid recurrence type")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSeriesInactive     = errors.New("series already stopped")
)

// ParseRecurrenceKind accepts the five known kinds, case-insensitively.
// An empty string is treated as none.
func ParseRecurrenceKind(s string) (RecurrenceKind, error) {
	k := RecurrenceKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return RecurrenceNone, nil
	}
	if !k.Valid() {
		return RecurrenceNone, fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
	return k, nil
}

func (k RecurrenceKind) Valid() bool {
	switch k {
	case RecurrenceNone, Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Repeats reports whether the kind produces further occurrences.
func (k RecurrenceKind) Repeats() bool {
	return k.Valid() && k != RecurrenceNone
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket of the date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(MonthKeyLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.RecurrenceType.Valid() {
		return ErrInvalidRecurrence
	}
	if !e.IsRecurring && e.RecurrenceType != RecurrenceNone {
		return fmt.Errorf("%w: %s set on a non-recurring expense", ErrInvalidRecurrence, e.RecurrenceType)
	}
	return nil
}

// StartsSeries reports whether creating this record should open a RecurrenceSeries.
func (e ExpenseRecord) StartsSeries() bool {
	return e.IsRecurring && e.RecurrenceType.Repeats()
}

func (s RecurrenceSeries) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return errors.New("series owner is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return ErrEmptyTitle
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if !s.Kind.Repeats() {
		return ErrInvalidRecurrence
	}
	if s.AnchorDay < 1 || s.AnchorDay > 31 {
		return fmt.Errorf("invalid anchor day %d", s.AnchorDay)
	}
	return s.NextDate.Validate()
}

// Occurrence builds the standalone record materialized for date. It is not
// itself recurring; the series is the only source of further occurrences.
func (s RecurrenceSeries) Occurrence(id string, date Date, now time.Time) ExpenseRecord {
	return ExpenseRecord{
		ID:             id,
		OwnerID:        s.OwnerID,
		Title:          s.Title,
		Amount:         s.Amount,
		Category:       s.Category,
		Date:           date,
		Note:           s.Note,
		PaymentMethod:  s.PaymentMethod,
		IsRecurring:    false,
		RecurrenceType: RecurrenceNone,
		SeriesID:       s.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Due reports whether the series has an occurrence on or before today.
func (s RecurrenceSeries) Due(today Date) bool {
	return s.Active && !s.NextDate.IsZero() && !s.NextDate.After(today.Time)
}
