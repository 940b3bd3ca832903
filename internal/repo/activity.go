package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/ordering"
)

// ActivityRepo defines the persistence operations for activities.
//
// Every operation that touches both the activity map and the owning day's
// activity order runs in one transaction holding a row lock on the day, so
// the two never drift apart through a partial write.
type ActivityRepo interface {
	// Create stores a under a new key in the given day and appends the key to
	// the day's activity order. Returns the stored activity with ID set.
	Create(ctx context.Context, dayKey string, a domain.Activity) (domain.Activity, error)

	// Get returns one activity. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, dayKey, id string) (domain.Activity, error)

	// Patch merges fields into the stored document (shallow, last write wins)
	// and returns the result. Returns domain.ErrNotFound when absent.
	Patch(ctx context.Context, dayKey, id string, fields map[string]any) (domain.Activity, error)

	// PatchIfAddress merges fields like Patch, but only while the stored
	// address still equals address. It reports whether the activity was
	// updated; false means it changed address or no longer exists.
	PatchIfAddress(ctx context.Context, dayKey, id, address string, fields map[string]any) (bool, error)

	// Delete removes the activity and its entry in the day's order.
	// Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, dayKey, id string) error

	// Move reinserts id at index to in the day's order and returns the new order.
	// An id missing from the order but present in the day is inserted.
	Move(ctx context.Context, dayKey, id string, to int) ([]string, error)

	// SetOrder replaces the day's order. The order must be a permutation of
	// the day's activity IDs, otherwise domain.ErrValidation is returned.
	SetOrder(ctx context.Context, dayKey string, order []string) error

	// ListAll returns every activity of every day.
	ListAll(ctx context.Context) ([]domain.ActivityRef, error)
}

type pgActivityRepo struct {
	db db
}

// NewActivityRepo constructs an ActivityRepo backed by the provided db connection.
func NewActivityRepo(db db) ActivityRepo {
	return &pgActivityRepo{db: db}
}

func (r *pgActivityRepo) Create(ctx context.Context, dayKey string, a domain.Activity) (domain.Activity, error) {
	const insert = `INSERT INTO activities (day_key, id, data) VALUES (@day_key, @id, @data)`

	id := NewKey()
	data, err := activityDocument(a)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.Create: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := lockOrder(ctx, tx, dayKey)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insert, pgx.NamedArgs{"day_key": dayKey, "id": id, "data": data}); err != nil {
			return err
		}
		return writeOrder(ctx, tx, dayKey, ordering.Append(order, id))
	})
	if err != nil {
		return domain.Activity{}, wrapErr("repo.ActivityRepo.Create", err)
	}

	a.ID = id
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a, nil
}

func (r *pgActivityRepo) Get(ctx context.Context, dayKey, id string) (domain.Activity, error) {
	const q = `
		SELECT day_key, id, data
		FROM activities
		WHERE day_key = @day_key AND id = @id`

	var key string
	a, err := scanActivity(r.db.QueryRow(ctx, q, pgx.NamedArgs{"day_key": dayKey, "id": id}), &key)
	if err != nil {
		return domain.Activity{}, wrapErr("repo.ActivityRepo.Get", err)
	}
	return a, nil
}

func (r *pgActivityRepo) Patch(ctx context.Context, dayKey, id string, fields map[string]any) (domain.Activity, error) {
	const q = `
		UPDATE activities
		SET data = data || @patch::jsonb, updated_at = now()
		WHERE day_key = @day_key AND id = @id
		RETURNING day_key, id, data`

	args := pgx.NamedArgs{"day_key": dayKey, "id": id, "patch": fields}

	var key string
	a, err := scanActivity(r.db.QueryRow(ctx, q, args), &key)
	if err != nil {
		return domain.Activity{}, wrapErr("repo.ActivityRepo.Patch", err)
	}
	return a, nil
}

func (r *pgActivityRepo) PatchIfAddress(ctx context.Context, dayKey, id, address string, fields map[string]any) (bool, error) {
	const q = `
		UPDATE activities
		SET data = data || @patch::jsonb, updated_at = now()
		WHERE day_key = @day_key AND id = @id
		  AND COALESCE(data->>'address', '') = @address`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"day_key": dayKey,
		"id":      id,
		"address": address,
		"patch":   fields,
	})
	if err != nil {
		return false, wrapErr("repo.ActivityRepo.PatchIfAddress", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgActivityRepo) Delete(ctx context.Context, dayKey, id string) error {
	const del = `DELETE FROM activities WHERE day_key = @day_key AND id = @id`

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := lockOrder(ctx, tx, dayKey)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, del, pgx.NamedArgs{"day_key": dayKey, "id": id})
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return writeOrder(ctx, tx, dayKey, ordering.Remove(order, id))
	})
	if err != nil {
		return wrapErr("repo.ActivityRepo.Delete", err)
	}
	return nil
}

func (r *pgActivityRepo) Move(ctx context.Context, dayKey, id string, to int) ([]string, error) {
	var moved []string
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := lockOrder(ctx, tx, dayKey)
		if err != nil {
			return err
		}
		ids, err := activityIDs(ctx, tx, dayKey)
		if err != nil {
			return err
		}
		if !contains(ids, id) {
			return domain.ErrNotFound
		}
		moved = ordering.MoveID(ordering.Reconcile(order, ids), id, to)
		return writeOrder(ctx, tx, dayKey, moved)
	})
	if err != nil {
		return nil, wrapErr("repo.ActivityRepo.Move", err)
	}
	return moved, nil
}

func (r *pgActivityRepo) SetOrder(ctx context.Context, dayKey string, order []string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := lockOrder(ctx, tx, dayKey); err != nil {
			return err
		}
		ids, err := activityIDs(ctx, tx, dayKey)
		if err != nil {
			return err
		}
		if !ordering.IsPermutation(order, ids) {
			return fmt.Errorf("%w: order must list each activity of the day exactly once", domain.ErrValidation)
		}
		return writeOrder(ctx, tx, dayKey, order)
	})
	if err != nil {
		return wrapErr("repo.ActivityRepo.SetOrder", err)
	}
	return nil
}

func (r *pgActivityRepo) ListAll(ctx context.Context) ([]domain.ActivityRef, error) {
	const q = `
		SELECT a.day_key, d.id, a.id, a.data
		FROM activities a
		JOIN days d ON d.storage_key = a.day_key
		ORDER BY d.position, a.id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, wrapErr("repo.ActivityRepo.ListAll", err)
	}
	defer rows.Close()

	var refs []domain.ActivityRef
	for rows.Next() {
		var ref domain.ActivityRef
		a, err := scanActivity(dayIDScanner{rows, &ref.DayID}, &ref.DayKey)
		if err != nil {
			return nil, wrapErr("repo.ActivityRepo.ListAll: scan", err)
		}
		ref.ID = a.ID
		ref.Activity = a
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("repo.ActivityRepo.ListAll: rows", err)
	}
	return refs, nil
}

// dayIDScanner splices the joined day ID into the (day_key, id, data) scan
// expected by scanActivity.
type dayIDScanner struct {
	s     scanner
	dayID *string
}

func (d dayIDScanner) Scan(dest ...any) error {
	return d.s.Scan(append([]any{dest[0], d.dayID}, dest[1:]...)...)
}

// lockOrder reads a day's activity order and holds its row lock until the
// transaction ends.
func lockOrder(ctx context.Context, tx pgx.Tx, dayKey string) ([]string, error) {
	const q = `SELECT activity_order FROM days WHERE storage_key = @key FOR UPDATE`

	var order []string
	if err := tx.QueryRow(ctx, q, pgx.NamedArgs{"key": dayKey}).Scan(&order); err != nil {
		return nil, err
	}
	return order, nil
}

func writeOrder(ctx context.Context, tx pgx.Tx, dayKey string, order []string) error {
	const q = `UPDATE days SET activity_order = @order, updated_at = now() WHERE storage_key = @key`

	_, err := tx.Exec(ctx, q, pgx.NamedArgs{"key": dayKey, "order": orNone(order)})
	return err
}

func activityIDs(ctx context.Context, tx pgx.Tx, dayKey string) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT id FROM activities WHERE day_key = @key`, pgx.NamedArgs{"key": dayKey})
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
