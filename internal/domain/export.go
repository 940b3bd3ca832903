package domain

// ExportRow is a single row in the full-data export.
// It is a flat, denormalized view: one row per activity, with day fields
// repeated for every activity of that day. Days with no activities yield one
// row with zero values for all activity fields.
//
// Tags keep the order stored on the activity.
// Callers that need a joined string (e.g. CSV) should join them.
type ExportRow struct {
	// Day fields, repeated for every activity on the day.
	DayID    string
	DayDate  string
	DayTitle string

	// Activity fields. Zero values when the day has no activities.
	ActivityID string
	Name       string
	Time       string
	Price      float64
	Category   string
	Booked     bool
	Address    string
	Lat        *float64
	Lon        *float64
	Link       string
	Notes      string

	Tags []string
}
