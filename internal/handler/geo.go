package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/places"
)

// GeocodeResponse is a resolved address.
type GeocodeResponse struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// GetWeather handles GET /weather?lat=&lon=.
func (s *Server) GetWeather(w http.ResponseWriter, r *http.Request) {
	var lat, lon float64
	if !bindQuery(w, r, "lat", true, &lat) || !bindQuery(w, r, "lon", true, &lon) {
		return
	}
	out, err := s.geo.Forecast(r.Context(), lat, lon)
	if err != nil {
		s.writeError(w, r, err, "forecast not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetActivityWeather handles GET /trip/days/{dayId}/activities/{activityId}/weather.
func (s *Server) GetActivityWeather(w http.ResponseWriter, r *http.Request) {
	out, err := s.geo.ActivityForecast(r.Context(), chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"))
	if err != nil {
		s.writeError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// bindPlacesQuery reads type, radius and sort. Unset values fall back to the
// provider defaults.
func bindPlacesQuery(w http.ResponseWriter, r *http.Request) (places.Query, string, bool) {
	q := places.Query{Type: places.DefaultType, Radius: places.DefaultRadius}
	var sortBy string
	if !bindQuery(w, r, "type", false, &q.Type) ||
		!bindQuery(w, r, "radius", false, &q.Radius) ||
		!bindQuery(w, r, "sort", false, &sortBy) {
		return q, "", false
	}
	return q, sortBy, true
}

// GetNearby handles GET /places/nearby?lat=&lon=&type=&radius=&sort=.
func (s *Server) GetNearby(w http.ResponseWriter, r *http.Request) {
	q, sortBy, ok := bindPlacesQuery(w, r)
	if !ok || !bindQuery(w, r, "lat", true, &q.Lat) || !bindQuery(w, r, "lon", true, &q.Lon) {
		return
	}
	out, err := s.geo.Nearby(r.Context(), q, sortBy)
	if err != nil {
		s.writeError(w, r, err, "no places found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetActivityNearby handles GET /trip/days/{dayId}/activities/{activityId}/nearby.
func (s *Server) GetActivityNearby(w http.ResponseWriter, r *http.Request) {
	q, sortBy, ok := bindPlacesQuery(w, r)
	if !ok {
		return
	}
	out, err := s.geo.ActivityNearby(r.Context(), chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"), q, sortBy)
	if err != nil {
		s.writeError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetGeocode handles GET /geocode?address=.
func (s *Server) GetGeocode(w http.ResponseWriter, r *http.Request) {
	var address string
	if !bindQuery(w, r, "address", true, &address) {
		return
	}
	p, err := s.geo.Geocode(r.Context(), address)
	if errors.Is(err, geocode.ErrNoResults) {
		writeErrorBody(w, http.StatusNotFound, "not_found", "address not found")
		return
	}
	if err != nil {
		s.writeError(w, r, err, "address not found")
		return
	}
	writeJSON(w, http.StatusOK, GeocodeResponse{Address: address, Lat: p.Lat, Lon: p.Lon})
}

// RefreshGeocoding handles POST /geocode/refresh: one synchronous enrichment
// pass over every activity that still lacks coordinates.
func (s *Server) RefreshGeocoding(w http.ResponseWriter, r *http.Request) {
	res, err := s.enricher.Run(r.Context())
	if err != nil {
		s.writeError(w, r, err, "nothing to geocode")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
