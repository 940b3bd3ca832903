package domain

import "math"

// DailyForecast is one day of a summarised weather forecast.
// Temperatures are degrees Celsius; PrecipitationProbability is a percentage.
type DailyForecast struct {
	Date                     string `json:"date"` // YYYY-MM-DD
	TempMin                  int    `json:"temp_min"`
	TempMax                  int    `json:"temp_max"`
	Description              string `json:"description"`
	Icon                     string `json:"icon"`
	PrecipitationProbability int    `json:"precipitation_probability"`
}

// NearbyPlace is a point of interest returned by the places provider.
type NearbyPlace struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	Types       []string `json:"types"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
}

const earthRadiusMeters = 6371e3

// DistanceMeters returns the great-circle distance between two points using
// the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
