package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/storage"
	"github.com/pkordes/trip-planner/backend/internal/watch"
)

// EnrichTrigger schedules a background geocoding pass.
type EnrichTrigger interface {
	Trigger()
}

// ActivityService manages activities within days. Every mutation that can
// change a price is followed by a budget recalculation.
type ActivityService struct {
	days       repo.DayRepo
	activities repo.ActivityRepo
	budget     *BudgetService
	files      storage.Store
	enrich     EnrichTrigger
	notify     Notifier
	log        *slog.Logger
	now        func() time.Time
}

// ActivityDeps bundles the collaborators of ActivityService. Enrich and
// Notify may be nil.
type ActivityDeps struct {
	Days       repo.DayRepo
	Activities repo.ActivityRepo
	Budget     *BudgetService
	Files      storage.Store
	Enrich     EnrichTrigger
	Notify     Notifier
	Log        *slog.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(d ActivityDeps) *ActivityService {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &ActivityService{
		days:       d.Days,
		activities: d.Activities,
		budget:     d.Budget,
		files:      d.Files,
		enrich:     d.Enrich,
		notify:     orNop(d.Notify),
		log:        log,
		now:        time.Now,
	}
}

// Add creates an activity at the end of the day's order. The ID and
// attachments of a are ignored.
func (s *ActivityService) Add(ctx context.Context, dayID string, a domain.Activity) (domain.Activity, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Tags = cleanTags(a.Tags)
	a.ID = ""
	a.Attachments = nil
	if err := validateActivity(a); err != nil {
		return domain.Activity{}, err
	}

	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return domain.Activity{}, err
	}
	created, err := s.activities.Create(ctx, key, a)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := s.afterWrite(ctx, key); err != nil {
		return domain.Activity{}, err
	}
	if created.NeedsGeocoding() {
		s.triggerEnrich()
	}
	return created, nil
}

// Update applies a partial update. Changing the address without supplying
// coordinates clears them so the next geocoding pass resolves the new one.
func (s *ActivityService) Update(ctx context.Context, dayID, activityID string, p domain.ActivityPatch) (domain.Activity, error) {
	if err := validatePatch(&p); err != nil {
		return domain.Activity{}, err
	}
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return domain.Activity{}, err
	}
	cur, err := s.activities.Get(ctx, key, activityID)
	if err != nil {
		return domain.Activity{}, err
	}

	if p.Address != nil && *p.Address != cur.Address && p.Lat == nil && p.Lon == nil {
		none := domain.Coordinate{}
		p.Lat, p.Lon = &none, &none
	}

	fields := p.Fields()
	if len(fields) == 0 {
		return cur, nil
	}
	updated, err := s.activities.Patch(ctx, key, activityID, fields)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := s.afterWrite(ctx, key); err != nil {
		return domain.Activity{}, err
	}
	if updated.NeedsGeocoding() {
		s.triggerEnrich()
	}
	return updated, nil
}

// Delete removes the activity and its attachment files. Files already gone
// from storage are ignored. Other storage failures do not stop the deletion;
// they are reported afterwards as a *domain.PartialFailureError.
func (s *ActivityService) Delete(ctx context.Context, dayID, activityID string) error {
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return err
	}
	a, err := s.activities.Get(ctx, key, activityID)
	if err != nil {
		return err
	}

	var failed []string
	for _, att := range a.Attachments {
		if att.Path == "" {
			continue
		}
		if err := s.files.Delete(ctx, att.Path); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn("attachment delete failed", "path", att.Path, "error", err)
			failed = append(failed, att.Path)
		}
	}

	if err := s.activities.Delete(ctx, key, activityID); err != nil {
		return err
	}
	if err := s.afterWrite(ctx, key); err != nil {
		return err
	}
	if len(failed) > 0 {
		return &domain.PartialFailureError{Op: "delete activity " + activityID, Failed: failed}
	}
	return nil
}

// Move places an activity at index to and returns the new order.
func (s *ActivityService) Move(ctx context.Context, dayID, activityID string, to int) ([]string, error) {
	if to < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", domain.ErrValidation)
	}
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return nil, err
	}
	order, err := s.activities.Move(ctx, key, activityID, to)
	if err != nil {
		return nil, err
	}
	s.notify.Publish(path.Join(watch.PathDays, key))
	return order, nil
}

// SetOrder replaces the day's order. It must list every activity exactly once.
func (s *ActivityService) SetOrder(ctx context.Context, dayID string, order []string) error {
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return err
	}
	if order == nil {
		order = []string{}
	}
	if err := s.activities.SetOrder(ctx, key, order); err != nil {
		return err
	}
	s.notify.Publish(path.Join(watch.PathDays, key))
	return nil
}

// AddAttachment uploads a file and records it on the activity.
func (s *ActivityService) AddAttachment(ctx context.Context, dayID, activityID, filename, contentType string, body io.Reader, size int64) (domain.Attachment, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.Attachment{}, fmt.Errorf("%w: file name is required", domain.ErrValidation)
	}
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return domain.Attachment{}, err
	}
	a, err := s.activities.Get(ctx, key, activityID)
	if err != nil {
		return domain.Attachment{}, err
	}

	objectPath := storage.AttachmentPath(dayID, activityID, filename, s.now())
	url, err := s.files.Put(ctx, objectPath, contentType, body, size)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("service.ActivityService.AddAttachment: %w: %w", domain.ErrRemote, err)
	}
	att := domain.Attachment{Name: path.Base(objectPath), URL: url, Path: objectPath}
	if i := strings.IndexByte(att.Name, '_'); i >= 0 {
		att.Name = att.Name[i+1:]
	}

	atts := append(a.Attachments, att)
	if _, err := s.activities.Patch(ctx, key, activityID, map[string]any{"attachments": atts}); err != nil {
		if derr := s.files.Delete(ctx, objectPath); derr != nil {
			s.log.Warn("orphaned attachment", "path", objectPath, "error", derr)
		}
		return domain.Attachment{}, err
	}
	s.notify.Publish(path.Join(watch.PathDays, key))
	return att, nil
}

// RemoveAttachment deletes the file at objectPath and drops its reference.
// A file already missing from storage still has its reference removed.
func (s *ActivityService) RemoveAttachment(ctx context.Context, dayID, activityID, objectPath string) error {
	key, err := resolveDay(ctx, s.days, dayID)
	if err != nil {
		return err
	}
	a, err := s.activities.Get(ctx, key, activityID)
	if err != nil {
		return err
	}

	kept := make([]domain.Attachment, 0, len(a.Attachments))
	found := false
	for _, att := range a.Attachments {
		if att.Path == objectPath {
			found = true
			continue
		}
		kept = append(kept, att)
	}
	if !found {
		return fmt.Errorf("attachment %q: %w", objectPath, domain.ErrNotFound)
	}

	if err := s.files.Delete(ctx, objectPath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("service.ActivityService.RemoveAttachment: %w: %w", domain.ErrRemote, err)
	}
	if _, err := s.activities.Patch(ctx, key, activityID, map[string]any{"attachments": kept}); err != nil {
		return err
	}
	s.notify.Publish(path.Join(watch.PathDays, key))
	return nil
}

func (s *ActivityService) afterWrite(ctx context.Context, key string) error {
	s.notify.Publish(path.Join(watch.PathDays, key))
	if _, err := s.budget.Recalculate(ctx, nil); err != nil {
		return fmt.Errorf("recalculate budget: %w", err)
	}
	return nil
}

func (s *ActivityService) triggerEnrich() {
	if s.enrich != nil {
		s.enrich.Trigger()
	}
}

func validateActivity(a domain.Activity) error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if a.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrValidation, a.Category)
	}
	return nil
}

// validatePatch checks the fields being set and normalises name and tags.
func validatePatch(p *domain.ActivityPatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", domain.ErrValidation)
		}
		p.Name = &name
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrValidation, *p.Category)
	}
	if p.Tags != nil {
		tags := cleanTags(*p.Tags)
		p.Tags = &tags
	}
	return nil
}
