package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

const (
	defaultGoogleURL      = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultNominatimURL   = "https://nominatim.openstreetmap.org"
	defaultBreakerTimeout = 30 * time.Second
	userAgent             = "trip-planner/1.0"
)

// Google is the primary provider: the Google Maps Geocoding API.
type Google struct {
	APIKey  string
	BaseURL string // defaults to the public endpoint
	Client  *http.Client
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to the first candidate's location.
func (g *Google) Geocode(ctx context.Context, address string) (Point, error) {
	base := g.BaseURL
	if base == "" {
		base = defaultGoogleURL
	}
	q := url.Values{"address": {address}, "key": {g.APIKey}}

	var body googleResponse
	if err := getJSON(ctx, g.Client, base+"?"+q.Encode(), &body); err != nil {
		return Point{}, fmt.Errorf("geocode.Google: %w", err)
	}

	switch {
	case body.Status == "ZERO_RESULTS" || (body.Status == "OK" && len(body.Results) == 0):
		return Point{}, fmt.Errorf("geocode.Google: %w: %w", domain.ErrProvider, ErrNoResults)
	case body.Status != "OK":
		return Point{}, fmt.Errorf("geocode.Google: %w: status %s %s", domain.ErrProvider, body.Status, body.ErrorMessage)
	}
	loc := body.Results[0].Geometry.Location
	return Point{Lat: loc.Lat, Lon: loc.Lng}, nil
}

// Nominatim is the fallback provider: the OpenStreetMap search API, which
// reports coordinates as strings.
type Nominatim struct {
	BaseURL string // defaults to the public instance
	Client  *http.Client
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves address to the best match.
func (n *Nominatim) Geocode(ctx context.Context, address string) (Point, error) {
	base := n.BaseURL
	if base == "" {
		base = defaultNominatimURL
	}
	q := url.Values{"q": {address}, "format": {"json"}, "limit": {"1"}}

	var body []nominatimResult
	if err := getJSON(ctx, n.Client, base+"/search?"+q.Encode(), &body); err != nil {
		return Point{}, fmt.Errorf("geocode.Nominatim: %w", err)
	}
	if len(body) == 0 {
		return Point{}, fmt.Errorf("geocode.Nominatim: %w: %w", domain.ErrProvider, ErrNoResults)
	}

	lat, errLat := strconv.ParseFloat(body[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(body[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return Point{}, fmt.Errorf("geocode.Nominatim: %w: malformed coordinates %q,%q",
			domain.ErrProvider, body[0].Lat, body[0].Lon)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// getJSON performs a GET and decodes a 200 response into dst. Transport
// errors, other statuses and undecodable bodies wrap domain.ErrProvider.
func getJSON(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http status %d", domain.ErrProvider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrProvider, err)
	}
	return nil
}
