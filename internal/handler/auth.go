package handler

import (
	"net/http"

	"github.com/pkordes/trip-planner/backend/internal/middleware"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /auth/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Logout handles POST /auth/logout. The presented token stops working.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), middleware.ClaimsFrom(r.Context())); err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me and returns {uid, email}.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), middleware.ClaimsFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
