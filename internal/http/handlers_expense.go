package http

import (
	"fmt"
	"net/http"

	"spendtrack/internal/core"
	"spendtrack/internal/export"
	applog "spendtrack/internal/log"
	"spendtrack/internal/services"
)

const expenseNotFound = "Expense not found"

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	records, err := s.expenses.List(r.Context(), userID(r), f)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	rec, err := s.expenses.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	rec, err := s.expenses.Create(r.Context(), userID(r), in)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		applog.NewFields().
			WithUser(rec.OwnerID).
			WithExpense(rec.ID, rec.Category, rec.Amount.Cents, rec.Date.String()).
			ToSlice()...)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleReplaceExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	rec, err := s.expenses.Replace(r.Context(), userID(r), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Expense deleted"})
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	var req services.ExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	pdf, err := s.exports.PDF(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
