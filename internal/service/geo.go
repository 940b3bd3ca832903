package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/places"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// Forecaster returns daily forecasts for a point.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) ([]domain.DailyForecast, error)
}

// PlaceFinder searches points of interest around a point.
type PlaceFinder interface {
	Nearby(ctx context.Context, q places.Query) ([]domain.NearbyPlace, error)
}

// Nearby result orderings.
const (
	SortByRating   = "rating"
	SortByDistance = "distance"
)

// GeoService fronts the weather, places and geocoding providers and can
// locate a query on an existing activity.
type GeoService struct {
	days       repo.DayRepo
	activities repo.ActivityRepo
	weather    Forecaster
	places     PlaceFinder
	geocoder   geocode.Geocoder
}

// NewGeoService constructs a GeoService. Providers left nil report
// domain.ErrProvider when used.
func NewGeoService(days repo.DayRepo, activities repo.ActivityRepo, w Forecaster, p PlaceFinder, g geocode.Geocoder) *GeoService {
	return &GeoService{days: days, activities: activities, weather: w, places: p, geocoder: g}
}

// Forecast returns the daily forecasts at lat, lon.
func (s *GeoService) Forecast(ctx context.Context, lat, lon float64) ([]domain.DailyForecast, error) {
	if err := validatePoint(lat, lon); err != nil {
		return nil, err
	}
	if s.weather == nil {
		return nil, fmt.Errorf("%w: weather provider not configured", domain.ErrProvider)
	}
	out, err := s.weather.Forecast(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.DailyForecast{}
	}
	return out, nil
}

// ActivityForecast returns the forecast at an activity's coordinates.
func (s *GeoService) ActivityForecast(ctx context.Context, dayID, activityID string) ([]domain.DailyForecast, error) {
	lat, lon, err := s.activityPoint(ctx, dayID, activityID)
	if err != nil {
		return nil, err
	}
	return s.Forecast(ctx, lat, lon)
}

// Nearby returns places around q, ordered by sortBy (rating by default).
func (s *GeoService) Nearby(ctx context.Context, q places.Query, sortBy string) ([]domain.NearbyPlace, error) {
	if err := validatePoint(q.Lat, q.Lon); err != nil {
		return nil, err
	}
	if q.Radius < 0 || q.Radius > places.MaxRadius {
		return nil, fmt.Errorf("%w: radius must be between 0 and %d", domain.ErrValidation, places.MaxRadius)
	}
	switch sortBy {
	case "", SortByRating, SortByDistance:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrValidation, sortBy)
	}
	if s.places == nil {
		return nil, fmt.Errorf("%w: places provider not configured", domain.ErrProvider)
	}

	out, err := s.places.Nearby(ctx, q)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.NearbyPlace{}
	}
	if sortBy == SortByDistance {
		places.SortByDistance(out, q.Lat, q.Lon)
	}
	return out, nil
}

// ActivityNearby searches around an activity's coordinates.
func (s *GeoService) ActivityNearby(ctx context.Context, dayID, activityID string, q places.Query, sortBy string) ([]domain.NearbyPlace, error) {
	lat, lon, err := s.activityPoint(ctx, dayID, activityID)
	if err != nil {
		return nil, err
	}
	q.Lat, q.Lon = lat, lon
	return s.Nearby(ctx, q, sortBy)
}

// Geocode resolves a free-text address.
func (s *GeoService) Geocode(ctx context.Context, address string) (geocode.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geocode.Point{}, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}
	if s.geocoder == nil {
		return geocode.Point{}, fmt.Errorf("%w: geocoder not configured", domain.ErrProvider)
	}
	return s.geocoder.Geocode(ctx, address)
}

func (s *GeoService) activityPoint(ctx context.Context, dayID, activityID string) (float64, float64, error) {
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return 0, 0, err
	}
	a, err := s.activities.Get(ctx, key, activityID)
	if err != nil {
		return 0, 0, err
	}
	if !a.Lat.Valid || !a.Lon.Valid {
		return 0, 0, fmt.Errorf("%w: activity %s has no coordinates", domain.ErrValidation, activityID)
	}
	return a.Lat.Value, a.Lon.Value, nil
}

func validatePoint(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat must be between -90 and 90", domain.ErrValidation)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lon must be between -180 and 180", domain.ErrValidation)
	}
	return nil
}
