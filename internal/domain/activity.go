package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Category classifies an activity for expense grouping.
type Category string

const (
	CategoryLodging   Category = "Logement"
	CategoryTransport Category = "Transport"
	CategoryActivity  Category = "Activité"
	CategoryFood      Category = "Alimentation"
	CategoryOther     Category = "Autre"
)

// Valid reports whether c is one of the known categories.
// The empty category is valid and means "not set".
func (c Category) Valid() bool {
	switch c {
	case "", CategoryLodging, CategoryTransport, CategoryActivity, CategoryFood, CategoryOther:
		return true
	}
	return false
}

// Activity is a bookable item within a day. It is stored as a JSON document
// under its day, so the json tags below are the persisted field names.
// ID is not part of the document; it is the key in Day.ActivitiesByID.
type Activity struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Time        string       `json:"time,omitempty"`
	Price       float64      `json:"price"`
	Link        string       `json:"link,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Address     string       `json:"address,omitempty"`
	Lat         Coordinate   `json:"lat"`
	Lon         Coordinate   `json:"lon"`
	Booked      bool         `json:"booked"`
	Tags        []string     `json:"tags"`
	Category    Category     `json:"category,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NeedsGeocoding reports whether the activity has an address but no usable
// numeric coordinates: either one is missing or was stored as a string by an
// older client.
func (a Activity) NeedsGeocoding() bool {
	if strings.TrimSpace(a.Address) == "" {
		return false
	}
	if !a.Lat.Valid || !a.Lon.Valid {
		return true
	}
	return a.Lat.Legacy || a.Lon.Legacy
}

// Attachment references a file held by the file-storage provider.
// Path is required to delete the file; URL is provider-issued and may change.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ActivityRef locates an activity in the trip tree.
type ActivityRef struct {
	DayKey   string
	DayID    string
	ID       string
	Activity Activity
}

// ActivityPatch is a partial update. Nil fields are left untouched.
type ActivityPatch struct {
	Name     *string
	Time     *string
	Price    *float64
	Link     *string
	Notes    *string
	Address  *string
	Lat      *Coordinate
	Lon      *Coordinate
	Booked   *bool
	Tags     *[]string
	Category *Category
}

// Fields returns the patch as a document fragment keyed by persisted field
// name, suitable for a shallow JSON merge.
func (p ActivityPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Time != nil {
		f["time"] = *p.Time
	}
	if p.Price != nil {
		f["price"] = *p.Price
	}
	if p.Link != nil {
		f["link"] = *p.Link
	}
	if p.Notes != nil {
		f["notes"] = *p.Notes
	}
	if p.Address != nil {
		f["address"] = *p.Address
	}
	if p.Lat != nil {
		f["lat"] = *p.Lat
	}
	if p.Lon != nil {
		f["lon"] = *p.Lon
	}
	if p.Booked != nil {
		f["booked"] = *p.Booked
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		f["tags"] = tags
	}
	if p.Category != nil {
		f["category"] = *p.Category
	}
	return f
}

// Coordinate is a nullable latitude or longitude.
//
// Older clients stored coordinates as JSON strings. Such values decode with
// Legacy set (and Valid set when the string parses as a number) and encode
// back to a string, so they remain flagged until re-geocoded.
type Coordinate struct {
	Value  float64
	Valid  bool
	Legacy bool
}

// Coord returns a valid numeric coordinate.
func Coord(v float64) Coordinate { return Coordinate{Value: v, Valid: true} }

// Ptr returns a pointer to the coordinate value, or nil when it is not set.
func (c Coordinate) Ptr() *float64 {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

// MarshalJSON encodes null, a number, or a string for legacy values.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	s := strconv.FormatFloat(c.Value, 'f', -1, 64)
	if c.Legacy {
		return json.Marshal(s)
	}
	return []byte(s), nil
}

// UnmarshalJSON accepts null, a number, or a numeric string.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	*c = Coordinate{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		c.Legacy = true
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			c.Value, c.Valid = v, true
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.Value, c.Valid = v, true
	return nil
}
