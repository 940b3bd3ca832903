package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

type activityRequest struct {
	Name     string   `json:"name" validate:"required"`
	Time     string   `json:"time" validate:"max=32"`
	Price    float64  `json:"price" validate:"gte=0"`
	Link     string   `json:"link"`
	Notes    string   `json:"notes"`
	Address  string   `json:"address"`
	Lat      *float64 `json:"lat" validate:"omitnil,latitude"`
	Lon      *float64 `json:"lon" validate:"omitnil,longitude"`
	Booked   bool     `json:"booked"`
	Tags     []string `json:"tags" validate:"dive,max=64"`
	Category string   `json:"category"`
}

func (req activityRequest) toDomain() domain.Activity {
	a := domain.Activity{
		Name:     req.Name,
		Time:     req.Time,
		Price:    req.Price,
		Link:     req.Link,
		Notes:    req.Notes,
		Address:  req.Address,
		Booked:   req.Booked,
		Tags:     req.Tags,
		Category: domain.Category(req.Category),
	}
	if req.Lat != nil && req.Lon != nil {
		a.Lat, a.Lon = domain.Coord(*req.Lat), domain.Coord(*req.Lon)
	}
	return a
}

type activityPatchRequest struct {
	Name     *string   `json:"name"`
	Time     *string   `json:"time" validate:"omitnil,max=32"`
	Price    *float64  `json:"price" validate:"omitnil,gte=0"`
	Link     *string   `json:"link"`
	Notes    *string   `json:"notes"`
	Address  *string   `json:"address"`
	Lat      *float64  `json:"lat" validate:"omitnil,latitude"`
	Lon      *float64  `json:"lon" validate:"omitnil,longitude"`
	Booked   *bool     `json:"booked"`
	Tags     *[]string `json:"tags" validate:"omitnil,dive,max=64"`
	Category *string   `json:"category"`
}

func (req activityPatchRequest) toDomain() domain.ActivityPatch {
	p := domain.ActivityPatch{
		Name:    req.Name,
		Time:    req.Time,
		Price:   req.Price,
		Link:    req.Link,
		Notes:   req.Notes,
		Address: req.Address,
		Booked:  req.Booked,
		Tags:    req.Tags,
	}
	if req.Lat != nil {
		c := domain.Coord(*req.Lat)
		p.Lat = &c
	}
	if req.Lon != nil {
		c := domain.Coord(*req.Lon)
		p.Lon = &c
	}
	if req.Category != nil {
		c := domain.Category(*req.Category)
		p.Category = &c
	}
	return p
}

type moveRequest struct {
	ToIndex *int `json:"toIndex" validate:"required,gte=0"`
}

type orderRequest struct {
	Order []string `json:"order" validate:"required"`
}

// OrderResponse carries an order array after a move.
type OrderResponse struct {
	Order []string `json:"order"`
}

// CreateActivity handles POST /trip/days/{dayId}/activities.
func (s *Server) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	a, err := s.activities.Add(r.Context(), chi.URLParam(r, "dayId"), req.toDomain())
	if err != nil {
		s.writeError(w, r, err, "day not found")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateActivity handles PATCH /trip/days/{dayId}/activities/{activityId}.
func (s *Server) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityPatchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	a, err := s.activities.Update(r.Context(), chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"), req.toDomain())
	if err != nil {
		s.writeError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteActivity handles DELETE /trip/days/{dayId}/activities/{activityId}.
// Attachment files that could not be removed yield 207 with their paths.
func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	err := s.activities.Delete(r.Context(), chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"))
	if err != nil {
		s.writeError(w, r, err, "activity not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveActivity handles POST /trip/days/{dayId}/activities/{activityId}/move.
func (s *Server) MoveActivity(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	order, err := s.activities.Move(r.Context(), chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"), *req.ToIndex)
	if err != nil {
		s.writeError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: order})
}

// SetActivityOrder handles PUT /trip/days/{dayId}/activities/order.
func (s *Server) SetActivityOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.activities.SetOrder(r.Context(), chi.URLParam(r, "dayId"), req.Order); err != nil {
		s.writeError(w, r, err, "day not found")
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: req.Order})
}

// UploadAttachment handles POST .../activities/{activityId}/attachments with
// a multipart form holding one "file" part.
func (s *Server) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, "payload_too_large", "file too large")
			return
		}
		requestError(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	att, err := s.activities.AddAttachment(r.Context(),
		chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"),
		header.Filename, contentType, file, header.Size)
	if err != nil {
		s.writeError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// DeleteAttachment handles DELETE .../activities/{activityId}/attachments?path=...
func (s *Server) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	var objectPath string
	if !bindQuery(w, r, "path", true, &objectPath) {
		return
	}
	err := s.activities.RemoveAttachment(r.Context(), chi.URLParam(r, "dayId"), chi.URLParam(r, "activityId"), objectPath)
	if err != nil {
		s.writeError(w, r, err, "attachment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
