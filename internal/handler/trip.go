package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// GetTrip handles GET /trip and returns every day plus the budget.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}
	if trip.Days == nil {
		trip.Days = []domain.Day{}
	}
	writeJSON(w, http.StatusOK, trip)
}

// SeedTrip handles POST /trip/seed. It is a no-op once any day exists.
func (s *Server) SeedTrip(w http.ResponseWriter, r *http.Request) {
	seeded, err := s.trips.Seed(r.Context())
	if err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}
	status := http.StatusOK
	if seeded {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"seeded": seeded})
}

type importRequest struct {
	Days []domain.Day `json:"days" validate:"required,min=1"`
}

// ImportDays handles POST /trip/import with {"days":[...]}.
func (s *Server) ImportDays(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	n, err := s.trips.Import(r.Context(), req.Days)
	if err != nil {
		s.writeError(w, r, err, "day not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"imported": n})
}

// GetDay handles GET /trip/days/{dayId}.
func (s *Server) GetDay(w http.ResponseWriter, r *http.Request) {
	d, err := s.trips.Day(r.Context(), chi.URLParam(r, "dayId"))
	if err != nil {
		s.writeError(w, r, err, "day not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ReplaceDay handles PUT /trip/days/{dayId}. The body replaces the whole day,
// activities included.
func (s *Server) ReplaceDay(w http.ResponseWriter, r *http.Request) {
	var d domain.Day
	if !s.decodeBody(w, r, &d) {
		return
	}
	saved, err := s.trips.ReplaceDay(r.Context(), chi.URLParam(r, "dayId"), d)
	if err != nil {
		s.writeError(w, r, err, "day not found")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
