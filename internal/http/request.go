package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// badRequestError marks a body that could not be decoded.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// decodeJSON reads a single JSON object from the body into dst and runs
// struct validation on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequestError{errors.New("request body is empty")}
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequestError{fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)}
		}
		return badRequestError{fmt.Errorf("invalid JSON: %w", err)}
	}
	if dec.More() {
		return badRequestError{errors.New("request body must hold a single JSON object")}
	}
	return validate.Struct(dst)
}

// parseFilter reads category, from and to from the query string.
func parseFilter(q url.Values) (core.ExpenseFilter, error) {
	f := core.ExpenseFilter{Category: strings.TrimSpace(q.Get("category"))}
	var err error
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if f.From, err = core.ParseDate(v); err != nil {
			return f, err
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if f.To, err = core.ParseDate(v); err != nil {
			return f, err
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To.Time) {
		return f, fmt.Errorf("%w: from is after to", core.ErrInvalidDate)
	}
	return f, nil
}

var errInvalidGoal = errors.New("goal must be a non-negative number")

// parseGoal reads the optional monthly goal; a missing goal is zero.
func parseGoal(q url.Values) (decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get("goal"))
	if v == "" {
		return decimal.Zero, nil
	}
	goal, err := decimal.NewFromString(v)
	if err != nil || goal.IsNegative() {
		return decimal.Zero, errInvalidGoal
	}
	return goal, nil
}
