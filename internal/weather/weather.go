// Package weather fetches multi-day forecasts from OpenWeatherMap and folds
// the 3-hourly samples into per-day summaries.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

	// MaxDays caps the number of daily summaries returned.
	MaxDays = 5
)

// Client calls the 5-day / 3-hour forecast endpoint.
type Client struct {
	APIKey  string
	BaseURL string // defaults to the public endpoint
	Client  *http.Client
	Now     func() time.Time // defaults to time.Now
}

// Sample is one point-in-time forecast entry.
type Sample struct {
	DtTxt string `json:"dt_txt"` // "2006-01-02 15:04:05", UTC
	Main  struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []Condition `json:"weather"`
	Pop     float64     `json:"pop"`
}

// Condition describes the sky for a sample.
type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type forecastResponse struct {
	// cod is a string on success and sometimes a number on errors.
	Cod     json.RawMessage `json:"cod"`
	Message json.RawMessage `json:"message"`
	List    []Sample        `json:"list"`
}

// Forecast returns up to MaxDays daily summaries for the given point,
// starting today. Provider failures wrap domain.ErrProvider.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]domain.DailyForecast, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	q := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.APIKey},
		"units": {"metric"},
		"lang":  {"fr"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather.Client.Forecast: %w", err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather.Client.Forecast: %w: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather.Client.Forecast: %w: decode response: %w", domain.ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK || unquote(body.Cod) != "200" {
		return nil, fmt.Errorf("weather.Client.Forecast: %w: %s (code %s)",
			domain.ErrProvider, unquote(body.Message), unquote(body.Cod))
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return Summarize(body.List, now().UTC()), nil
}

// Summarize buckets samples by calendar date, drops dates before today and
// keeps at most MaxDays days. Per day, temperatures are the rounded min and
// max of the samples, description and icon come from the middle sample, and
// the precipitation probability is the mean pop as a whole percentage.
func Summarize(samples []Sample, today time.Time) []domain.DailyForecast {
	type bucket struct {
		temps []float64
		pops  []float64
		descs []string
		icons []string
	}
	buckets := map[string]*bucket{}
	for _, s := range samples {
		date, _, _ := strings.Cut(s.DtTxt, " ")
		if date == "" {
			continue
		}
		b := buckets[date]
		if b == nil {
			b = &bucket{}
			buckets[date] = b
		}
		b.temps = append(b.temps, s.Main.Temp)
		b.pops = append(b.pops, s.Pop)
		var desc, icon string
		if len(s.Weather) > 0 {
			desc, icon = s.Weather[0].Description, s.Weather[0].Icon
		}
		b.descs = append(b.descs, desc)
		b.icons = append(b.icons, icon)
	}

	todayStr := today.Format(time.DateOnly)
	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		if d >= todayStr {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	if len(dates) > MaxDays {
		dates = dates[:MaxDays]
	}

	out := make([]domain.DailyForecast, 0, len(dates))
	for _, d := range dates {
		b := buckets[d]
		lo, hi := b.temps[0], b.temps[0]
		for _, t := range b.temps[1:] {
			lo = math.Min(lo, t)
			hi = math.Max(hi, t)
		}
		var popSum float64
		for _, p := range b.pops {
			popSum += p
		}
		mid := len(b.icons) / 2

		out = append(out, domain.DailyForecast{
			Date:                     d,
			TempMin:                  roundHalfUp(lo),
			TempMax:                  roundHalfUp(hi),
			Description:              firstNonEmpty(b.descs[mid], b.descs[0]),
			Icon:                     firstNonEmpty(b.icons[mid], b.icons[0]),
			PrecipitationProbability: roundHalfUp(popSum / float64(len(b.pops)) * 100),
		})
	}
	return out
}

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
