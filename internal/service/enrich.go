package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/metrics"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/watch"
)

// Defaults for geocoding passes.
const (
	DefaultEnrichBatchSize = 5
	DefaultEnrichPause     = 500 * time.Millisecond
	enrichRunTimeout       = 5 * time.Minute
)

// EnrichResult tallies one geocoding pass.
type EnrichResult struct {
	Candidates int `json:"candidates"`
	Updated    int `json:"updated"`
	Failed     int `json:"failed"`
	// Skipped counts activities whose address changed during the pass.
	Skipped    int `json:"skipped"`
}

// Enricher fills in missing or string-typed coordinates of activities that
// have an address. Addresses are geocoded in batches; requests within a batch
// run concurrently and batches are separated by a pause. A failure on one
// activity never stops the pass.
type Enricher struct {
	activities repo.ActivityRepo
	geocoder   geocode.Geocoder
	notify     Notifier
	metrics    *metrics.Collector
	log        *slog.Logger

	BatchSize int
	Pause     time.Duration

	mu      sync.Mutex // one pass at a time
	pending atomic.Bool
	bg      sync.WaitGroup
}

// NewEnricher constructs an Enricher. m and notify may be nil.
func NewEnricher(activities repo.ActivityRepo, g geocode.Geocoder, notify Notifier, m *metrics.Collector, log *slog.Logger) *Enricher {
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{
		activities: activities,
		geocoder:   g,
		notify:     orNop(notify),
		metrics:    m,
		log:        log,
		BatchSize:  DefaultEnrichBatchSize,
		Pause:      DefaultEnrichPause,
	}
}

// Run performs one pass and returns its tally. Concurrent calls are
// serialised. The error is non-nil only when candidates cannot be listed or
// ctx ends between batches.
func (e *Enricher) Run(ctx context.Context) (EnrichResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	refs, err := e.activities.ListAll(ctx)
	if err != nil {
		return EnrichResult{}, err
	}
	var todo []domain.ActivityRef
	for _, r := range refs {
		if r.Activity.NeedsGeocoding() {
			todo = append(todo, r)
		}
	}

	res := EnrichResult{Candidates: len(todo)}
	if len(todo) == 0 {
		return res, nil
	}

	size := e.BatchSize
	if size <= 0 {
		size = DefaultEnrichBatchSize
	}

	var t tally
	for start := 0; start < len(todo); start += size {
		if start > 0 && e.Pause > 0 {
			select {
			case <-ctx.Done():
				return e.finish(res, &t), ctx.Err()
			case <-time.After(e.Pause):
			}
		}

		end := min(start+size, len(todo))
		g, gctx := errgroup.WithContext(ctx)
		for _, ref := range todo[start:end] {
			g.Go(func() error {
				t.add(e.enrichOne(gctx, ref))
				return nil
			})
		}
		_ = g.Wait()
	}
	return e.finish(res, &t), nil
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeFailed
	outcomeSkipped
)

type tally struct{ updated, failed, skipped atomic.Int64 }

func (t *tally) add(o outcome) {
	switch o {
	case outcomeUpdated:
		t.updated.Add(1)
	case outcomeSkipped:
		t.skipped.Add(1)
	default:
		t.failed.Add(1)
	}
}

// Trigger starts a background pass unless one is already queued.
func (e *Enricher) Trigger() {
	if !e.pending.CompareAndSwap(false, true) {
		return
	}
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		e.mu.Lock()
		e.pending.Store(false)
		e.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), enrichRunTimeout)
		defer cancel()
		if _, err := e.Run(ctx); err != nil {
			e.log.Error("background geocoding failed", "error", err)
		}
	}()
}

// Wait blocks until triggered passes have finished.
func (e *Enricher) Wait() { e.bg.Wait() }

func (e *Enricher) enrichOne(ctx context.Context, ref domain.ActivityRef) outcome {
	p, err := e.geocoder.Geocode(ctx, ref.Activity.Address)
	if err != nil {
		lvl := slog.LevelWarn
		if errors.Is(err, geocode.ErrNoResults) {
			lvl = slog.LevelInfo
		}
		e.log.Log(ctx, lvl, "geocoding failed",
			"day", ref.DayID, "activity", ref.ID, "address", ref.Activity.Address, "error", err)
		return outcomeFailed
	}

	lat, lon := domain.Coord(p.Lat), domain.Coord(p.Lon)
	patch := domain.ActivityPatch{Lat: &lat, Lon: &lon}
	// The address may have been edited while the provider answered.
	ok, err := e.activities.PatchIfAddress(ctx, ref.DayKey, ref.ID, ref.Activity.Address, patch.Fields())
	if err != nil {
		e.log.Warn("storing coordinates failed", "day", ref.DayID, "activity", ref.ID, "error", err)
		return outcomeFailed
	}
	if !ok {
		e.log.Info("activity changed during geocoding, coordinates discarded",
			"day", ref.DayID, "activity", ref.ID, "address", ref.Activity.Address)
		return outcomeSkipped
	}
	return outcomeUpdated
}

func (e *Enricher) finish(res EnrichResult, t *tally) EnrichResult {
	res.Updated = int(t.updated.Load())
	res.Failed = int(t.failed.Load())
	res.Skipped = int(t.skipped.Load())
	if res.Updated > 0 {
		e.notify.Publish(watch.PathDays)
	}
	if e.metrics != nil {
		e.metrics.GeocodeRuns.Inc()
		e.metrics.GeocodeOutcomes.WithLabelValues("updated").Add(float64(res.Updated))
		e.metrics.GeocodeOutcomes.WithLabelValues("failed").Add(float64(res.Failed))
		e.metrics.GeocodeOutcomes.WithLabelValues("skipped").Add(float64(res.Skipped))
	}
	e.log.Info("geocoding pass finished",
		"candidates", res.Candidates, "updated", res.Updated, "failed", res.Failed, "skipped", res.Skipped)
	return res
}
