package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pkordes/trip-planner/backend/internal/service"
)

const jobTimeout = 10 * time.Minute

// EnrichRunner runs one geocoding pass.
type EnrichRunner interface {
	Run(ctx context.Context) (service.EnrichResult, error)
}

// RevocationPurger drops expired token revocations.
type RevocationPurger interface {
	PurgeRevoked(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic background jobs.
type Scheduler struct {
	cron   *cron.Cron
	enrich EnrichRunner
	purge  RevocationPurger
	log    *slog.Logger
}

// NewScheduler builds a Scheduler. Either job may be nil.
func NewScheduler(enrich EnrichRunner, purge RevocationPurger, log *slog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), enrich: enrich, purge: purge, log: log}
}

// Start registers the jobs whose spec is non-empty and starts the cron loop.
func (s *Scheduler) Start(geocodeSpec, purgeSpec string) error {
	if s.enrich != nil && geocodeSpec != "" {
		if _, err := s.cron.AddFunc(geocodeSpec, s.runEnrich); err != nil {
			return fmt.Errorf("app.Scheduler.Start: geocode schedule %q: %w", geocodeSpec, err)
		}
	}
	if s.purge != nil && purgeSpec != "" {
		if _, err := s.cron.AddFunc(purgeSpec, s.runPurge); err != nil {
			return fmt.Errorf("app.Scheduler.Start: purge schedule %q: %w", purgeSpec, err)
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runEnrich() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.enrich.Run(ctx); err != nil {
		s.log.Error("scheduled geocoding failed", "error", err)
	}
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.purge.PurgeRevoked(ctx)
	if err != nil {
		s.log.Error("token purge failed", "error", err)
		return
	}
	s.log.Info("expired revocations purged", "count", n)
}
