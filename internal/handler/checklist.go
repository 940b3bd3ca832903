package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

type checklistItemRequest struct {
	Text     string `json:"text" validate:"required"`
	Category string `json:"category" validate:"max=64"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type checklistPatchRequest struct {
	Text      *string `json:"text" validate:"omitnil,min=1"`
	Completed *bool   `json:"completed"`
	Category  *string `json:"category" validate:"omitnil,max=64"`
	Priority  *string `json:"priority" validate:"omitnil,oneof=low medium high"`
}

func (req checklistPatchRequest) toDomain() domain.ChecklistPatch {
	p := domain.ChecklistPatch{Text: req.Text, Completed: req.Completed, Category: req.Category}
	if req.Priority != nil {
		pr := domain.Priority(*req.Priority)
		p.Priority = &pr
	}
	return p
}

// ChecklistResponse is the filtered item list plus whole-list progress.
type ChecklistResponse struct {
	Items   []domain.ChecklistItem   `json:"items"`
	Summary service.ChecklistSummary `json:"summary"`
}

// GetChecklist handles GET /checklist?status=&category=.
// The summary always covers the whole checklist, not the filtered view.
func (s *Server) GetChecklist(w http.ResponseWriter, r *http.Request) {
	var status, category string
	if !bindQuery(w, r, "status", false, &status) || !bindQuery(w, r, "category", false, &category) {
		return
	}
	items, err := s.checklist.Items(r.Context(), domain.ChecklistFilter{
		Status:   domain.ChecklistStatus(status),
		Category: category,
	})
	if err != nil {
		s.writeError(w, r, err, "checklist not found")
		return
	}
	sum, err := s.checklist.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err, "checklist not found")
		return
	}
	if items == nil {
		items = []domain.ChecklistItem{}
	}
	writeJSON(w, http.StatusOK, ChecklistResponse{Items: items, Summary: sum})
}

// CreateChecklistItem handles POST /checklist/items.
func (s *Server) CreateChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req checklistItemRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	it, err := s.checklist.Add(r.Context(), domain.ChecklistItem{
		Text:     req.Text,
		Category: req.Category,
		Priority: domain.Priority(req.Priority),
	})
	if err != nil {
		s.writeError(w, r, err, "checklist not found")
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// UpdateChecklistItem handles PATCH /checklist/items/{itemId}.
func (s *Server) UpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req checklistPatchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	it, err := s.checklist.Update(r.Context(), chi.URLParam(r, "itemId"), req.toDomain())
	if err != nil {
		s.writeError(w, r, err, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// ToggleChecklistItem handles POST /checklist/items/{itemId}/toggle.
func (s *Server) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.checklist.Toggle(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		s.writeError(w, r, err, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// DeleteChecklistItem handles DELETE /checklist/items/{itemId}.
func (s *Server) DeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	if err := s.checklist.Delete(r.Context(), chi.URLParam(r, "itemId")); err != nil {
		s.writeError(w, r, err, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveChecklistItem handles POST /checklist/items/{itemId}/move.
func (s *Server) MoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	order, err := s.checklist.Move(r.Context(), chi.URLParam(r, "itemId"), *req.ToIndex)
	if err != nil {
		s.writeError(w, r, err, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: order})
}

// SetChecklistOrder handles PUT /checklist/order.
func (s *Server) SetChecklistOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.checklist.SetOrder(r.Context(), req.Order); err != nil {
		s.writeError(w, r, err, "checklist not found")
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: req.Order})
}
