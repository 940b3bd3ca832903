// Package geocode resolves free-text addresses to coordinates through
// third-party providers. Every provider normalises its response to a Point;
// failures wrap domain.ErrProvider.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/metrics"
)

// Point is a resolved location in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Geocoder resolves one address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// ErrNoResults is returned when a provider answered but found nothing.
var ErrNoResults = errors.New("no results")

// Fallback asks Primary first and Secondary when Primary fails or finds
// nothing. Either may be nil, which skips it.
type Fallback struct {
	Primary   Geocoder
	Secondary Geocoder
}

// Geocode returns the first successful answer.
func (f Fallback) Geocode(ctx context.Context, address string) (Point, error) {
	var errs []error
	for _, g := range []Geocoder{f.Primary, f.Secondary} {
		if g == nil {
			continue
		}
		p, err := g.Geocode(ctx, address)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return Point{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Point{}, fmt.Errorf("geocode: no provider configured: %w", domain.ErrProvider)
	}
	return Point{}, fmt.Errorf("geocode %q: %w", address, errors.Join(errs...))
}

// Breaker guards a provider with a circuit breaker so a failing service is
// not hammered on every enrichment pass. An empty result counts as success.
type Breaker struct {
	name    string
	next    Geocoder
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

// NewBreaker wraps next. m may be nil.
func NewBreaker(name string, next Geocoder, m *metrics.Collector, log *slog.Logger) *Breaker {
	b := &Breaker{name: name, next: next, metrics: m}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     defaultBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoResults) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("geocode breaker state changed", "provider", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return b
}

// Geocode calls the wrapped provider unless the breaker is open.
func (b *Breaker) Geocode(ctx context.Context, address string) (Point, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Geocode(ctx, address)
	})
	b.observe(err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Point{}, fmt.Errorf("%s: %w: %w", b.name, domain.ErrProvider, err)
		}
		return Point{}, err
	}
	return res.(Point), nil
}

func (b *Breaker) observe(err error) {
	if b.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "open"
	case err != nil:
		outcome = "error"
	}
	b.metrics.ProviderCalls.WithLabelValues(b.name, outcome).Inc()
}
