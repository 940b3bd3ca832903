// export.go implements GET /trip/export.
// Returns every day and activity as a flat table.
// Supports ?format=csv (CSV) or default (JSON).

package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

// ExportRow is the JSON shape of one export row.
type ExportRow struct {
	DayID      string   `json:"dayId"`
	DayDate    string   `json:"dayDate"`
	DayTitle   string   `json:"dayTitle"`
	ActivityID string   `json:"activityId,omitempty"`
	Name       string   `json:"name,omitempty"`
	Time       string   `json:"time,omitempty"`
	Price      float64  `json:"price"`
	Category   string   `json:"category,omitempty"`
	Booked     bool     `json:"booked"`
	Address    string   `json:"address,omitempty"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Link       string   `json:"link,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Tags       []string `json:"tags"`
}

// GetExport implements GET /trip/export.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format string
	if !bindQuery(w, r, "format", false, &format) {
		return
	}
	if format != "" && format != "csv" && format != "json" {
		requestError(w, "format must be csv or json")
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}

	if format == "csv" {
		s.writeCSV(w, r, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExportRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV buffers the CSV so a failure can still be reported as JSON.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, rows []domain.ExportRow) {
	var buf bytes.Buffer
	if err := service.WriteCSV(&buf, rows); err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trip-export.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
