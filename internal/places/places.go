// Package places searches points of interest around a location through the
// Google Places Nearby Search API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

	// DefaultType and DefaultRadius apply when a query leaves them unset.
	DefaultType   = "restaurant"
	DefaultRadius = 1500

	// MaxRadius is the provider's upper bound in meters.
	MaxRadius = 50000
)

// Query describes a nearby search.
type Query struct {
	Lat    float64
	Lon    float64
	Type   string // provider place type, e.g. restaurant, museum, park
	Radius int    // meters
}

// Client calls the Nearby Search endpoint.
type Client struct {
	APIKey  string
	BaseURL string // defaults to the public endpoint
	Client  *http.Client
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Rating           float64  `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		Types            []string `json:"types"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"results"`
}

// Nearby returns places around q ranked by rating, best first.
// ZERO_RESULTS yields an empty list; any other non-OK status wraps
// domain.ErrProvider.
func (c *Client) Nearby(ctx context.Context, q Query) ([]domain.NearbyPlace, error) {
	if q.Type == "" {
		q.Type = DefaultType
	}
	if q.Radius <= 0 {
		q.Radius = DefaultRadius
	}
	if q.Radius > MaxRadius {
		q.Radius = MaxRadius
	}

	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	params := url.Values{
		"location": {strconv.FormatFloat(q.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(q.Lon, 'f', -1, 64)},
		"radius":   {strconv.Itoa(q.Radius)},
		"type":     {q.Type},
		"key":      {c.APIKey},
		"language": {"fr"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/nearbysearch/json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("places.Client.Nearby: %w", err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places.Client.Nearby: %w: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places.Client.Nearby: %w: http status %d", domain.ErrProvider, resp.StatusCode)
	}
	var body nearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("places.Client.Nearby: %w: decode response: %w", domain.ErrProvider, err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []domain.NearbyPlace{}, nil
	default:
		return nil, fmt.Errorf("places.Client.Nearby: %w: status %s %s", domain.ErrProvider, body.Status, body.ErrorMessage)
	}

	out := make([]domain.NearbyPlace, 0, len(body.Results))
	for _, r := range body.Results {
		p := domain.NearbyPlace{
			ID:          r.PlaceID,
			Name:        r.Name,
			Address:     r.Vicinity,
			Lat:         r.Geometry.Location.Lat,
			Lon:         r.Geometry.Location.Lng,
			Rating:      r.Rating,
			ReviewCount: r.UserRatingsTotal,
			Types:       r.Types,
		}
		if p.Name == "" {
			p.Name = "Sans nom"
		}
		if p.Address == "" {
			p.Address = "Adresse non disponible"
		}
		if p.Types == nil {
			p.Types = []string{}
		}
		if len(r.Photos) > 0 && r.Photos[0].PhotoReference != "" {
			p.PhotoURL = c.photoURL(base, r.Photos[0].PhotoReference)
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (c *Client) photoURL(base, ref string) string {
	q := url.Values{
		"maxwidth":        {"400"},
		"photo_reference": {ref},
		"key":             {c.APIKey},
	}
	return base + "/photo?" + q.Encode()
}

// SortByDistance orders places by distance from (lat, lon), nearest first.
func SortByDistance(places []domain.NearbyPlace, lat, lon float64) {
	sort.SliceStable(places, func(i, j int) bool {
		return domain.DistanceMeters(lat, lon, places[i].Lat, places[i].Lon) <
			domain.DistanceMeters(lat, lon, places[j].Lat, places[j].Lon)
	})
}
