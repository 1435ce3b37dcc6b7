package http

import (
	"net/http"

	"spendtrack/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	goal, err := parseGoal(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	view, err := s.dashboards.Dashboard(r.Context(), userID(r), goal)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.expenses.ListSeries(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if series == nil {
		series = []core.RecurrenceSeries{}
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleStopSeries(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.StopSeries(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Series not found")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Series stopped"})
}
