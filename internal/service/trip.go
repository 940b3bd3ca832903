package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/ordering"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/storage"
	"github.com/pkordes/trip-planner/backend/internal/watch"
)

// TripService reads the whole itinerary and owns whole-day writes.
type TripService struct {
	days    repo.DayRepo
	budgets repo.BudgetRepo
	budget  *BudgetService
	files   storage.Store
	enrich  EnrichTrigger
	notify  Notifier
	log     *slog.Logger
}

// TripDeps bundles the collaborators of TripService. Enrich and Notify may
// be nil.
type TripDeps struct {
	Days    repo.DayRepo
	Budgets repo.BudgetRepo
	Budget  *BudgetService
	Files   storage.Store
	Enrich  EnrichTrigger
	Notify  Notifier
	Log     *slog.Logger
}

// NewTripService constructs a TripService.
func NewTripService(d TripDeps) *TripService {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &TripService{
		days:    d.Days,
		budgets: d.Budgets,
		budget:  d.Budget,
		files:   d.Files,
		enrich:  d.Enrich,
		notify:  orNop(d.Notify),
		log:     log,
	}
}

// Load returns every day in itinerary order plus the budget. Activity orders
// are reconciled against the stored activities before they are returned.
// If any activity still needs coordinates a geocoding pass is scheduled.
func (s *TripService) Load(ctx context.Context) (domain.Trip, error) {
	days, err := s.days.List(ctx)
	if err != nil {
		return domain.Trip{}, err
	}
	b, err := s.budgets.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Trip{}, err
	}

	pending := false
	for i := range days {
		days[i] = reconcileDay(days[i])
		for _, a := range days[i].ActivitiesByID {
			if a.NeedsGeocoding() {
				pending = true
			}
		}
	}
	if pending && s.enrich != nil {
		s.enrich.Trigger()
	}
	return domain.Trip{Days: days, Budget: b}, nil
}

// Day returns one day by its logical ID.
func (s *TripService) Day(ctx context.Context, dayID string) (domain.Day, error) {
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return domain.Day{}, err
	}
	d, err := s.days.Get(ctx, key)
	if err != nil {
		return domain.Day{}, err
	}
	return reconcileDay(d), nil
}

// ReplaceDay overwrites a whole day, activities included. The order is
// reconciled with the supplied activities before it is stored. Attachment
// files referenced by the old day but not by d are deleted once the day is
// saved; failures are reported as a *domain.PartialFailureError.
func (s *TripService) ReplaceDay(ctx context.Context, dayID string, d domain.Day) (domain.Day, error) {
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return domain.Day{}, err
	}
	if d.ID == "" {
		d.ID = dayID
	}
	if d.ID != dayID {
		return domain.Day{}, fmt.Errorf("%w: day id cannot be changed", domain.ErrValidation)
	}
	for id, a := range d.ActivitiesByID {
		a.Name = strings.TrimSpace(a.Name)
		a.Tags = cleanTags(a.Tags)
		if err := validateActivity(a); err != nil {
			return domain.Day{}, fmt.Errorf("activity %s: %w", id, err)
		}
		d.ActivitiesByID[id] = a
	}
	d.Key = key
	d = reconcileDay(d)

	old, err := s.days.Get(ctx, key)
	if err != nil {
		return domain.Day{}, err
	}
	saved, err := s.days.Replace(ctx, d)
	if err != nil {
		return domain.Day{}, err
	}
	failed := s.deleteFiles(ctx, droppedAttachments(old, d))

	s.notify.Publish(path.Join(watch.PathDays, key))
	if _, err := s.budget.Recalculate(ctx, nil); err != nil {
		return domain.Day{}, fmt.Errorf("recalculate budget: %w", err)
	}
	if len(failed) > 0 {
		return saved, &domain.PartialFailureError{Op: "replace day " + dayID, Failed: failed}
	}
	return saved, nil
}

// droppedAttachments lists the attachment paths of old that next no longer
// references, in old's activity order.
func droppedAttachments(old, next domain.Day) []string {
	kept := map[string]bool{}
	for _, a := range next.ActivitiesByID {
		for _, att := range a.Attachments {
			kept[att.Path] = true
		}
	}
	var out []string
	for _, id := range ordering.Reconcile(old.ActivityOrder, ordering.Keys(old.ActivitiesByID)) {
		for _, att := range old.ActivitiesByID[id].Attachments {
			if att.Path != "" && !kept[att.Path] {
				out = append(out, att.Path)
			}
		}
	}
	return out
}

// deleteFiles removes each object, ignoring ones already gone, and returns
// the paths that could not be removed.
func (s *TripService) deleteFiles(ctx context.Context, paths []string) []string {
	var failed []string
	for _, p := range paths {
		if err := s.files.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn("attachment delete failed", "path", p, "error", err)
			failed = append(failed, p)
		}
	}
	return failed
}

// Seed writes the default itinerary and budget when no day exists yet.
// It reports whether anything was written.
func (s *TripService) Seed(ctx context.Context) (bool, error) {
	n, err := s.days.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.days.InsertAll(ctx, SeedDays()); err != nil {
		return false, err
	}
	if err := s.budgets.Init(ctx, domain.DefaultBudgetTotal); err != nil {
		return false, err
	}
	s.notify.Publish(watch.PathTrip)
	return true, nil
}

// Import writes days as given, e.g. from a JSON export. Days are appended
// after any existing ones.
func (s *TripService) Import(ctx context.Context, days []domain.Day) (int, error) {
	seen := make(map[string]bool, len(days))
	for i := range days {
		if strings.TrimSpace(days[i].ID) == "" {
			return 0, fmt.Errorf("%w: day %d has no id", domain.ErrValidation, i)
		}
		if seen[days[i].ID] {
			return 0, fmt.Errorf("%w: day %s appears more than once", domain.ErrValidation, days[i].ID)
		}
		seen[days[i].ID] = true
		_, err := s.days.ResolveKey(ctx, days[i].ID)
		if err == nil {
			return 0, fmt.Errorf("%w: day %s already exists", domain.ErrValidation, days[i].ID)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		days[i].Key = ""
		days[i] = reconcileDay(days[i])
	}
	saved, err := s.days.InsertAll(ctx, days)
	if err != nil {
		return 0, err
	}
	s.notify.Publish(watch.PathTrip)
	if _, err := s.budget.Recalculate(ctx, nil); err != nil {
		return len(saved), fmt.Errorf("recalculate budget: %w", err)
	}
	return len(saved), nil
}

func reconcileDay(d domain.Day) domain.Day {
	if d.ActivitiesByID == nil {
		d.ActivitiesByID = map[string]domain.Activity{}
	}
	d.ActivityOrder = ordering.Reconcile(d.ActivityOrder, ordering.Keys(d.ActivitiesByID))
	return d
}

var seed = []struct{ date, title string }{
	{"10/06", "Arrivée à Porto-Vecchio"},
	{"11/06", "Aiguilles de Bavella & Piscines du Cavu"},
	{"12/06", "Bonifacio"},
	{"13/06", "Plages de Palombaggia"},
	{"14/06", "Réserve naturelle de Scandola"},
	{"15/06", "Corte & Vallée de la Restonica"},
	{"16/06", "Calvi"},
	{"17/06", "Cap Corse"},
	{"18/06", "Ajaccio"},
	{"19/06", "Départ"},
}

// SeedDays returns the default itinerary: ten empty days, jour1 to jour10.
func SeedDays() []domain.Day {
	out := make([]domain.Day, 0, len(seed))
	for i, d := range seed {
		id := fmt.Sprintf("jour%d", i+1)
		out = append(out, domain.Day{
			Key:            id,
			ID:             id,
			Date:           d.date,
			Title:          d.title,
			ActivityOrder:  []string{},
			ActivitiesByID: map[string]domain.Activity{},
		})
	}
	return out
}
