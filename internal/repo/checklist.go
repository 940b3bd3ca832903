package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/ordering"
)

// ChecklistRepo persists the checklist items and their order. Like
// ActivityRepo, map and order changes share one transaction.
type ChecklistRepo interface {
	// Load returns all items and the stored item order (unreconciled).
	Load(ctx context.Context) (domain.Checklist, error)

	// Create stores the item under a new key and appends it to the order.
	Create(ctx context.Context, item domain.ChecklistItem) (domain.ChecklistItem, error)

	// Patch merges fields into the stored item. Returns domain.ErrNotFound when absent.
	Patch(ctx context.Context, id string, fields map[string]any) (domain.ChecklistItem, error)

	// Delete removes the item and its order entry. Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// Move reinserts id at index to and returns the new order.
	Move(ctx context.Context, id string, to int) ([]string, error)

	// SetOrder replaces the order. It must be a permutation of the item IDs,
	// otherwise domain.ErrValidation is returned.
	SetOrder(ctx context.Context, order []string) error
}

type pgChecklistRepo struct {
	db db
}

// NewChecklistRepo constructs a ChecklistRepo backed by the provided db connection.
func NewChecklistRepo(db db) ChecklistRepo {
	return &pgChecklistRepo{db: db}
}

func (r *pgChecklistRepo) Load(ctx context.Context) (domain.Checklist, error) {
	c := domain.Checklist{Items: map[string]domain.ChecklistItem{}}

	if err := r.db.QueryRow(ctx, `SELECT item_order FROM checklist`).Scan(&c.ItemOrder); err != nil {
		return domain.Checklist{}, wrapErr("repo.ChecklistRepo.Load", err)
	}

	rows, err := r.db.Query(ctx, `SELECT id, data FROM checklist_items`)
	if err != nil {
		return domain.Checklist{}, wrapErr("repo.ChecklistRepo.Load", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanChecklistItem(rows)
		if err != nil {
			return domain.Checklist{}, wrapErr("repo.ChecklistRepo.Load: scan", err)
		}
		id := it.ID
		it.ID = ""
		c.Items[id] = it
	}
	if err := rows.Err(); err != nil {
		return domain.Checklist{}, wrapErr("repo.ChecklistRepo.Load: rows", err)
	}
	return c, nil
}

func (r *pgChecklistRepo) Create(ctx context.Context, item domain.ChecklistItem) (domain.ChecklistItem, error) {
	const insert = `INSERT INTO checklist_items (id, data) VALUES (@id, @data)`

	id := NewKey()
	item.ID = ""
	data, err := json.Marshal(item)
	if err != nil {
		return domain.ChecklistItem{}, fmt.Errorf("repo.ChecklistRepo.Create: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := lockItemOrder(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insert, pgx.NamedArgs{"id": id, "data": data}); err != nil {
			return err
		}
		return writeItemOrder(ctx, tx, ordering.Append(order, id))
	})
	if err != nil {
		return domain.ChecklistItem{}, wrapErr("repo.ChecklistRepo.Create", err)
	}

	item.ID = id
	return item, nil
}

func (r *pgChecklistRepo) Patch(ctx context.Context, id string, fields map[string]any) (domain.ChecklistItem, error) {
	const q = `
		UPDATE checklist_items
		SET data = data || @patch::jsonb, updated_at = now()
		WHERE id = @id
		RETURNING id, data`

	it, err := scanChecklistItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "patch": fields}))
	if err != nil {
		return domain.ChecklistItem{}, wrapErr("repo.ChecklistRepo.Patch", err)
	}
	return it, nil
}

func (r *pgChecklistRepo) Delete(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := lockItemOrder(ctx, tx)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM checklist_items WHERE id = @id`, pgx.NamedArgs{"id": id})
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return writeItemOrder(ctx, tx, ordering.Remove(order, id))
	})
	if err != nil {
		return wrapErr("repo.ChecklistRepo.Delete", err)
	}
	return nil
}

func (r *pgChecklistRepo) Move(ctx context.Context, id string, to int) ([]string, error) {
	var moved []string
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := lockItemOrder(ctx, tx)
		if err != nil {
			return err
		}
		ids, err := itemIDs(ctx, tx)
		if err != nil {
			return err
		}
		if !contains(ids, id) {
			return domain.ErrNotFound
		}
		moved = ordering.MoveID(ordering.Reconcile(order, ids), id, to)
		return writeItemOrder(ctx, tx, moved)
	})
	if err != nil {
		return nil, wrapErr("repo.ChecklistRepo.Move", err)
	}
	return moved, nil
}

func (r *pgChecklistRepo) SetOrder(ctx context.Context, order []string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := lockItemOrder(ctx, tx); err != nil {
			return err
		}
		ids, err := itemIDs(ctx, tx)
		if err != nil {
			return err
		}
		if !ordering.IsPermutation(order, ids) {
			return fmt.Errorf("%w: order must list each checklist item exactly once", domain.ErrValidation)
		}
		return writeItemOrder(ctx, tx, order)
	})
	if err != nil {
		return wrapErr("repo.ChecklistRepo.SetOrder", err)
	}
	return nil
}

func lockItemOrder(ctx context.Context, tx pgx.Tx) ([]string, error) {
	var order []string
	if err := tx.QueryRow(ctx, `SELECT item_order FROM checklist FOR UPDATE`).Scan(&order); err != nil {
		return nil, err
	}
	return order, nil
}

func writeItemOrder(ctx context.Context, tx pgx.Tx, order []string) error {
	const q = `UPDATE checklist SET item_order = @order, updated_at = now()`

	_, err := tx.Exec(ctx, q, pgx.NamedArgs{"order": orNone(order)})
	return err
}

func itemIDs(ctx context.Context, tx pgx.Tx) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT id FROM checklist_items`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanChecklistItem(s scanner) (domain.ChecklistItem, error) {
	var (
		id   string
		data []byte
	)
	if err := s.Scan(&id, &data); err != nil {
		return domain.ChecklistItem{}, err
	}
	var it domain.ChecklistItem
	if err := json.Unmarshal(data, &it); err != nil {
		return domain.ChecklistItem{}, fmt.Errorf("decode checklist item %s: %w", id, err)
	}
	it.ID = id
	return it, nil
}
