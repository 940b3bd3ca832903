package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/ordering"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/watch"
)

// ChecklistSummary describes progress over the whole checklist.
type ChecklistSummary struct {
	Total      int      `json:"total"`
	Completed  int      `json:"completed"`
	Progress   int      `json:"progress"`
	Categories []string `json:"categories"`
}

// ChecklistService manages the preparation checklist.
type ChecklistService struct {
	items  repo.ChecklistRepo
	notify Notifier
}

// NewChecklistService constructs a ChecklistService. notify may be nil.
func NewChecklistService(items repo.ChecklistRepo, notify Notifier) *ChecklistService {
	return &ChecklistService{items: items, notify: orNop(notify)}
}

// Load returns the checklist with a reconciled order.
func (s *ChecklistService) Load(ctx context.Context) (domain.Checklist, error) {
	c, err := s.items.Load(ctx)
	if err != nil {
		return domain.Checklist{}, err
	}
	if c.Items == nil {
		c.Items = map[string]domain.ChecklistItem{}
	}
	c.ItemOrder = ordering.Reconcile(c.ItemOrder, ordering.Keys(c.Items))
	return c, nil
}

// Items returns the ordered items matching f.
func (s *ChecklistService) Items(ctx context.Context, f domain.ChecklistFilter) ([]domain.ChecklistItem, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterItems(c, f), nil
}

// Summary returns progress and the categories in use.
func (s *ChecklistService) Summary(ctx context.Context) (ChecklistSummary, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return ChecklistSummary{}, err
	}
	sum := ChecklistSummary{Total: len(c.ItemOrder), Progress: Progress(c), Categories: Categories(c)}
	for _, it := range c.Ordered() {
		if it.Completed {
			sum.Completed++
		}
	}
	return sum, nil
}

// Add appends a new item to the checklist.
func (s *ChecklistService) Add(ctx context.Context, it domain.ChecklistItem) (domain.ChecklistItem, error) {
	it.ID = ""
	it.Text = strings.TrimSpace(it.Text)
	it.Category = strings.TrimSpace(it.Category)
	if it.Text == "" {
		return domain.ChecklistItem{}, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	if !it.Priority.Valid() {
		return domain.ChecklistItem{}, fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, it.Priority)
	}
	created, err := s.items.Create(ctx, it)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	s.notify.Publish(watch.PathChecklist)
	return created, nil
}

// Update applies a partial update to one item.
func (s *ChecklistService) Update(ctx context.Context, id string, p domain.ChecklistPatch) (domain.ChecklistItem, error) {
	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return domain.ChecklistItem{}, fmt.Errorf("%w: text is required", domain.ErrValidation)
		}
		p.Text = &text
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return domain.ChecklistItem{}, fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, *p.Priority)
	}
	if p.Category != nil {
		cat := strings.TrimSpace(*p.Category)
		p.Category = &cat
	}
	updated, err := s.items.Patch(ctx, id, p.Fields())
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	s.notify.Publish(watch.PathChecklist)
	return updated, nil
}

// Toggle flips the completion flag of an item.
func (s *ChecklistService) Toggle(ctx context.Context, id string) (domain.ChecklistItem, error) {
	c, err := s.items.Load(ctx)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	it, ok := c.Items[id]
	if !ok {
		return domain.ChecklistItem{}, fmt.Errorf("checklist item %q: %w", id, domain.ErrNotFound)
	}
	done := !it.Completed
	return s.Update(ctx, id, domain.ChecklistPatch{Completed: &done})
}

// Delete removes an item and its order entry.
func (s *ChecklistService) Delete(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.Publish(watch.PathChecklist)
	return nil
}

// Move places an item at index to and returns the new order.
func (s *ChecklistService) Move(ctx context.Context, id string, to int) ([]string, error) {
	if to < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", domain.ErrValidation)
	}
	order, err := s.items.Move(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.notify.Publish(watch.PathChecklist)
	return order, nil
}

// SetOrder replaces the item order. It must list every item exactly once.
func (s *ChecklistService) SetOrder(ctx context.Context, order []string) error {
	if order == nil {
		order = []string{}
	}
	if err := s.items.SetOrder(ctx, order); err != nil {
		return err
	}
	s.notify.Publish(watch.PathChecklist)
	return nil
}

// FilterItems returns the ordered items of c matching f. A nil result is
// never returned.
func FilterItems(c domain.Checklist, f domain.ChecklistFilter) []domain.ChecklistItem {
	out := make([]domain.ChecklistItem, 0, len(c.ItemOrder))
	for _, it := range c.Ordered() {
		switch f.Status {
		case domain.StatusPending:
			if it.Completed {
				continue
			}
		case domain.StatusCompleted:
			if !it.Completed {
				continue
			}
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Progress is the rounded percentage of completed items, 0 when empty.
func Progress(c domain.Checklist) int {
	items := c.Ordered()
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, it := range items {
		if it.Completed {
			done++
		}
	}
	return int(math.Round(float64(done) * 100 / float64(len(items))))
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(c domain.Checklist) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, it := range c.Items {
		if it.Category != "" && !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	sort.Strings(out)
	return out
}

func validateFilter(f domain.ChecklistFilter) error {
	switch f.Status {
	case "", domain.StatusAll, domain.StatusPending, domain.StatusCompleted:
		return nil
	}
	return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, f.Status)
}
