package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"spendtrack/internal/core"
	"spendtrack/internal/export"
	applog "spendtrack/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps err onto a status code. notFound is the message
// used for core.ErrNotFound. Unexpected errors are logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	status, msg := classify(err)
	if status == http.StatusNotFound && notFound != "" {
		msg = notFound
	}
	if status >= 500 {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	}
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	var badReq badRequestError
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, validationMessage(verrs)
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrSeriesInactive):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrMissingAmount),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRecurrence),
		errors.Is(err, export.ErrEmptyDocument),
		errors.Is(err, errInvalidGoal),
		errors.As(err, &badReq):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// validationMessage reports the first failing field, e.g.
// "email: must be a valid email".
func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "validation failed"
	}
	fe := errs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "email":
		return field + ": must be a valid email"
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s: must be a date in %s format", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}
