package http

import (
	"net/http"

	applog "spendtrack/internal/log"
	"spendtrack/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	sess, err := s.auth.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User registered", applog.FieldUserID, sess.User.ID)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	sess, err := s.auth.Login(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
