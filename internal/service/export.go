package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// ExportService assembles a flat export of the whole itinerary.
type ExportService struct {
	days repo.DayRepo
}

// NewExportService constructs an ExportService backed by the day repo.
func NewExportService(days repo.DayRepo) *ExportService {
	return &ExportService{days: days}
}

// Export returns one ExportRow per activity, days in itinerary order and
// activities in display order. Days with no activities contribute one row
// with empty activity fields.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	days, err := s.days.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := []domain.ExportRow{}
	for _, d := range days {
		d = reconcileDay(d)
		base := domain.ExportRow{DayID: d.ID, DayDate: d.Date, DayTitle: d.Title}

		acts := d.OrderedActivities()
		if len(acts) == 0 {
			base.Tags = []string{}
			rows = append(rows, base)
			continue
		}
		for _, a := range acts {
			row := base
			row.ActivityID = a.ID
			row.Name = a.Name
			row.Time = a.Time
			row.Price = a.Price
			row.Category = string(a.Category)
			row.Booked = a.Booked
			row.Address = a.Address
			row.Lat = a.Lat.Ptr()
			row.Lon = a.Lon.Ptr()
			row.Link = a.Link
			row.Notes = a.Notes
			row.Tags = a.Tags
			if row.Tags == nil {
				row.Tags = []string{}
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// CSVHeaders are the column names of the CSV export.
var CSVHeaders = []string{
	"day_id", "day_date", "day_title",
	"activity_id", "name", "time", "price", "category", "booked",
	"address", "lat", "lon", "link", "notes", "tags",
}

// WriteCSV encodes rows as CSV with a header line. Tags within a row are
// pipe-separated ("|") to keep each activity on a single CSV line.
func WriteCSV(w io.Writer, rows []domain.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeaders); err != nil {
		return fmt.Errorf("service.WriteCSV: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(csvRecord(r)); err != nil {
			return fmt.Errorf("service.WriteCSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvRecord flattens a row. Unset coordinates and the activity columns of
// an empty day encode as empty strings.
func csvRecord(r domain.ExportRow) []string {
	price, booked := "", ""
	if r.ActivityID != "" {
		price = strconv.FormatFloat(r.Price, 'f', -1, 64)
		booked = strconv.FormatBool(r.Booked)
	}
	return []string{
		r.DayID, r.DayDate, r.DayTitle,
		r.ActivityID, r.Name, r.Time, price, r.Category, booked,
		r.Address, formatCoord(r.Lat), formatCoord(r.Lon), r.Link, r.Notes,
		strings.Join(r.Tags, "|"),
	}
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
