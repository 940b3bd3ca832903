package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// BudgetRepo persists the single trip budget.
type BudgetRepo interface {
	// Get returns the budget. Returns domain.ErrNotFound before the first write.
	Get(ctx context.Context) (domain.Budget, error)

	// Init writes a budget with the given total unless one already exists.
	Init(ctx context.Context, total float64) error

	// Save writes spent, and total when non-nil, in one statement.
	Save(ctx context.Context, spent float64, total *float64) (domain.Budget, error)

	// SetCategoryLimits replaces the informational per-category caps.
	SetCategoryLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error)

	// SetTagLimits replaces the informational per-tag caps.
	SetTagLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error)
}

type pgBudgetRepo struct {
	db db
}

// NewBudgetRepo constructs a BudgetRepo backed by the provided db connection.
func NewBudgetRepo(db db) BudgetRepo {
	return &pgBudgetRepo{db: db}
}

const budgetColumns = `total, spent, category_limits, tag_limits`

func (r *pgBudgetRepo) Get(ctx context.Context) (domain.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budget`))
	if err != nil {
		return domain.Budget{}, wrapErr("repo.BudgetRepo.Get", err)
	}
	return b, nil
}

func (r *pgBudgetRepo) Init(ctx context.Context, total float64) error {
	const q = `
		INSERT INTO budget (total, spent)
		VALUES (@total, 0)
		ON CONFLICT (singleton) DO NOTHING`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"total": total}); err != nil {
		return wrapErr("repo.BudgetRepo.Init", err)
	}
	return nil
}

func (r *pgBudgetRepo) Save(ctx context.Context, spent float64, total *float64) (domain.Budget, error) {
	// A NULL total keeps the stored cap.
	const q = `
		INSERT INTO budget (total, spent)
		VALUES (COALESCE(@total::double precision, 0), @spent)
		ON CONFLICT (singleton) DO UPDATE
		SET spent      = EXCLUDED.spent,
		    total      = COALESCE(@total::double precision, budget.total),
		    updated_at = now()
		RETURNING ` + budgetColumns

	b, err := scanBudget(r.db.QueryRow(ctx, q, pgx.NamedArgs{"spent": spent, "total": total}))
	if err != nil {
		return domain.Budget{}, wrapErr("repo.BudgetRepo.Save", err)
	}
	return b, nil
}

func (r *pgBudgetRepo) SetCategoryLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	b, err := r.setLimits(ctx, "category_limits", limits)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("repo.BudgetRepo.SetCategoryLimits: %w", err)
	}
	return b, nil
}

func (r *pgBudgetRepo) SetTagLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	b, err := r.setLimits(ctx, "tag_limits", limits)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("repo.BudgetRepo.SetTagLimits: %w", err)
	}
	return b, nil
}

// setLimits upserts one of the two limit columns. column is always a
// constant from this file.
func (r *pgBudgetRepo) setLimits(ctx context.Context, column string, limits map[string]float64) (domain.Budget, error) {
	if limits == nil {
		limits = map[string]float64{}
	}
	q := `
		INSERT INTO budget (` + column + `) VALUES (@limits)
		ON CONFLICT (singleton) DO UPDATE
		SET ` + column + ` = EXCLUDED.` + column + `, updated_at = now()
		RETURNING ` + budgetColumns

	b, err := scanBudget(r.db.QueryRow(ctx, q, pgx.NamedArgs{"limits": limits}))
	if err != nil {
		return domain.Budget{}, wrapErr(column, err)
	}
	return b, nil
}

func scanBudget(s scanner) (domain.Budget, error) {
	var (
		b          domain.Budget
		categories []byte
		tags       []byte
	)
	if err := s.Scan(&b.Total, &b.Spent, &categories, &tags); err != nil {
		return domain.Budget{}, err
	}
	if err := json.Unmarshal(categories, &b.CategoryLimits); err != nil {
		return domain.Budget{}, fmt.Errorf("decode category limits: %w", err)
	}
	if err := json.Unmarshal(tags, &b.TagLimits); err != nil {
		return domain.Budget{}, fmt.Errorf("decode tag limits: %w", err)
	}
	return b, nil
}
