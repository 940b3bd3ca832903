package handler

import "net/http"

type budgetRequest struct {
	Total *float64 `json:"total" validate:"required,gte=0"`
}

// GetBudget handles GET /trip/budget: the stored budget with freshly derived
// expenses.
func (s *Server) GetBudget(w http.ResponseWriter, r *http.Request) {
	o, err := s.budget.Overview(r.Context())
	if err != nil {
		s.writeError(w, r, err, "budget not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateBudget handles PUT /trip/budget. It sets the total and recomputes the
// spent amount in the same write.
func (s *Server) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	b, err := s.budget.Recalculate(r.Context(), req.Total)
	if err != nil {
		s.writeError(w, r, err, "budget not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// SetCategoryLimits handles PUT /trip/budget/category-limits.
func (s *Server) SetCategoryLimits(w http.ResponseWriter, r *http.Request) {
	var limits map[string]float64
	if !s.decodeBody(w, r, &limits) {
		return
	}
	b, err := s.budget.SetCategoryLimits(r.Context(), limits)
	if err != nil {
		s.writeError(w, r, err, "budget not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// SetTagLimits handles PUT /trip/budget/tag-limits.
func (s *Server) SetTagLimits(w http.ResponseWriter, r *http.Request) {
	var limits map[string]float64
	if !s.decodeBody(w, r, &limits) {
		return
	}
	b, err := s.budget.SetTagLimits(r.Context(), limits)
	if err != nil {
		s.writeError(w, r, err, "budget not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}
