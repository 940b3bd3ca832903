package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/watch"
)

// BudgetService keeps Budget.Spent equal to the sum of activity prices and
// serves the expense breakdown.
type BudgetService struct {
	activities repo.ActivityRepo
	budgets    repo.BudgetRepo
	notify     Notifier
}

// NewBudgetService constructs a BudgetService. notify may be nil.
func NewBudgetService(activities repo.ActivityRepo, budgets repo.BudgetRepo, notify Notifier) *BudgetService {
	return &BudgetService{activities: activities, budgets: budgets, notify: orNop(notify)}
}

// Summarize totals the prices of acts.
//
// An activity with a zero price contributes to no bucket. Activities without
// a category count under DefaultCategoryBucket and those without tags under
// DefaultTagBucket. A price is credited in full to every tag of its activity.
func Summarize(acts []domain.Activity) domain.ExpenseSummary {
	sum := domain.ExpenseSummary{
		ByCategory: map[string]float64{},
		ByTag:      map[string]float64{},
	}
	for _, a := range acts {
		if a.Price == 0 {
			continue
		}
		sum.Spent += a.Price
		if a.Booked {
			sum.Booked += a.Price
		} else {
			sum.Unbooked += a.Price
		}

		cat := string(a.Category)
		if cat == "" {
			cat = domain.DefaultCategoryBucket
		}
		sum.ByCategory[cat] += a.Price

		tags := cleanTags(a.Tags)
		if len(tags) == 0 {
			tags = []string{domain.DefaultTagBucket}
		}
		for _, t := range tags {
			sum.ByTag[t] += a.Price
		}
	}
	return sum
}

// Recalculate recomputes spent from every activity and stores it. A non-nil
// total replaces the cap in the same write.
func (s *BudgetService) Recalculate(ctx context.Context, total *float64) (domain.Budget, error) {
	if total != nil && *total < 0 {
		return domain.Budget{}, fmt.Errorf("%w: total must not be negative", domain.ErrValidation)
	}
	sum, err := s.summarizeAll(ctx)
	if err != nil {
		return domain.Budget{}, err
	}
	b, err := s.budgets.Save(ctx, sum.Spent, total)
	if err != nil {
		return domain.Budget{}, err
	}
	s.notify.Publish(watch.PathBudget)
	return b, nil
}

// Overview returns the stored budget and a fresh expense summary. A budget
// that was never written reads as zero.
func (s *BudgetService) Overview(ctx context.Context) (domain.BudgetOverview, error) {
	b, err := s.budgets.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.BudgetOverview{}, err
	}
	sum, err := s.summarizeAll(ctx)
	if err != nil {
		return domain.BudgetOverview{}, err
	}
	return domain.BudgetOverview{Budget: b, Expenses: sum}, nil
}

// SetCategoryLimits replaces the per-category limits. Keys must be known
// categories.
func (s *BudgetService) SetCategoryLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	for k := range limits {
		if k == "" || !domain.Category(k).Valid() {
			return domain.Budget{}, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, k)
		}
	}
	if err := validateLimits(limits); err != nil {
		return domain.Budget{}, err
	}
	b, err := s.budgets.SetCategoryLimits(ctx, nonNilLimits(limits))
	if err != nil {
		return domain.Budget{}, err
	}
	s.notify.Publish(watch.PathBudget)
	return b, nil
}

// SetTagLimits replaces the per-tag limits.
func (s *BudgetService) SetTagLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	if err := validateLimits(limits); err != nil {
		return domain.Budget{}, err
	}
	b, err := s.budgets.SetTagLimits(ctx, nonNilLimits(limits))
	if err != nil {
		return domain.Budget{}, err
	}
	s.notify.Publish(watch.PathBudget)
	return b, nil
}

func (s *BudgetService) summarizeAll(ctx context.Context) (domain.ExpenseSummary, error) {
	refs, err := s.activities.ListAll(ctx)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}
	acts := make([]domain.Activity, 0, len(refs))
	for _, r := range refs {
		acts = append(acts, r.Activity)
	}
	return Summarize(acts), nil
}

func validateLimits(limits map[string]float64) error {
	for k, v := range limits {
		if v < 0 {
			return fmt.Errorf("%w: limit for %q must not be negative", domain.ErrValidation, k)
		}
	}
	return nil
}

func nonNilLimits(limits map[string]float64) map[string]float64 {
	if limits == nil {
		return map[string]float64{}
	}
	return limits
}
