package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// DayRepo defines the persistence operations for itinerary days.
// A day is addressed by its storage key; ResolveKey maps a logical day ID to it.
type DayRepo interface {
	// List returns every day, with its activities, in itinerary order.
	List(ctx context.Context) ([]domain.Day, error)

	// Get returns one day with its activities.
	// Returns domain.ErrNotFound if no day has that storage key.
	Get(ctx context.Context, key string) (domain.Day, error)

	// ResolveKey returns the storage key of the day whose logical ID is dayID.
	// Returns domain.ErrNotFound if no day carries that ID.
	ResolveKey(ctx context.Context, dayID string) (string, error)

	// Count returns the number of stored days.
	Count(ctx context.Context) (int, error)

	// InsertAll writes the given days and their activities in one transaction.
	// Days without a Key get a generated one. Itinerary order follows the slice.
	InsertAll(ctx context.Context, days []domain.Day) ([]domain.Day, error)

	// Replace overwrites the whole subtree of an existing day: its fields,
	// its activity order and every activity.
	// Returns domain.ErrNotFound if no day has that storage key.
	Replace(ctx context.Context, day domain.Day) (domain.Day, error)
}

type pgDayRepo struct {
	db db
}

// NewDayRepo constructs a DayRepo backed by the provided db connection.
func NewDayRepo(db db) DayRepo {
	return &pgDayRepo{db: db}
}

func (r *pgDayRepo) List(ctx context.Context) ([]domain.Day, error) {
	const q = `
		SELECT storage_key, id, date, title, activity_order
		FROM days
		ORDER BY position`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, wrapErr("repo.DayRepo.List", err)
	}
	defer rows.Close()

	var days []domain.Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, wrapErr("repo.DayRepo.List: scan", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("repo.DayRepo.List: rows", err)
	}

	byDay, err := listActivities(ctx, r.db, "")
	if err != nil {
		return nil, fmt.Errorf("repo.DayRepo.List: %w", err)
	}
	for i := range days {
		if m, ok := byDay[days[i].Key]; ok {
			days[i].ActivitiesByID = m
		}
	}
	return days, nil
}

func (r *pgDayRepo) Get(ctx context.Context, key string) (domain.Day, error) {
	const q = `
		SELECT storage_key, id, date, title, activity_order
		FROM days
		WHERE storage_key = @key`

	d, err := scanDay(r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}))
	if err != nil {
		return domain.Day{}, wrapErr("repo.DayRepo.Get", err)
	}

	byDay, err := listActivities(ctx, r.db, key)
	if err != nil {
		return domain.Day{}, fmt.Errorf("repo.DayRepo.Get: %w", err)
	}
	if m, ok := byDay[key]; ok {
		d.ActivitiesByID = m
	}
	return d, nil
}

func (r *pgDayRepo) ResolveKey(ctx context.Context, dayID string) (string, error) {
	const q = `SELECT storage_key FROM days WHERE id = @id`

	var key string
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": dayID}).Scan(&key); err != nil {
		return "", wrapErr("repo.DayRepo.ResolveKey", err)
	}
	return key, nil
}

func (r *pgDayRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM days`).Scan(&n); err != nil {
		return 0, wrapErr("repo.DayRepo.Count", err)
	}
	return n, nil
}

func (r *pgDayRepo) InsertAll(ctx context.Context, days []domain.Day) ([]domain.Day, error) {
	const q = `
		INSERT INTO days (storage_key, id, date, title, activity_order)
		VALUES (@key, @id, @date, @title, @order)`

	out := make([]domain.Day, 0, len(days))
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, d := range days {
			if d.Key == "" {
				d.Key = NewKey()
			}
			args := pgx.NamedArgs{
				"key":   d.Key,
				"id":    d.ID,
				"date":  d.Date,
				"title": d.Title,
				"order": orNone(d.ActivityOrder),
			}
			if _, err := tx.Exec(ctx, q, args); err != nil {
				return err
			}
			if err := insertActivities(ctx, tx, d.Key, d.ActivitiesByID); err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("repo.DayRepo.InsertAll", err)
	}
	return out, nil
}

func (r *pgDayRepo) Replace(ctx context.Context, day domain.Day) (domain.Day, error) {
	const update = `
		UPDATE days
		SET id             = @id,
		    date           = @date,
		    title          = @title,
		    activity_order = @order,
		    updated_at     = now()
		WHERE storage_key = @key`

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, update, pgx.NamedArgs{
			"key":   day.Key,
			"id":    day.ID,
			"date":  day.Date,
			"title": day.Title,
			"order": orNone(day.ActivityOrder),
		})
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM activities WHERE day_key = @key`,
			pgx.NamedArgs{"key": day.Key}); err != nil {
			return err
		}
		return insertActivities(ctx, tx, day.Key, day.ActivitiesByID)
	})
	if err != nil {
		return domain.Day{}, wrapErr("repo.DayRepo.Replace", err)
	}
	return day, nil
}

func scanDay(s scanner) (domain.Day, error) {
	var d domain.Day
	if err := s.Scan(&d.Key, &d.ID, &d.Date, &d.Title, &d.ActivityOrder); err != nil {
		return domain.Day{}, err
	}
	d.ActivitiesByID = map[string]domain.Activity{}
	return d, nil
}

// listActivities groups activity documents by day key. An empty dayKey
// loads every day.
func listActivities(ctx context.Context, q db, dayKey string) (map[string]map[string]domain.Activity, error) {
	const all = `SELECT day_key, id, data FROM activities`
	const one = `SELECT day_key, id, data FROM activities WHERE day_key = @key`

	var (
		rows pgx.Rows
		err  error
	)
	if dayKey == "" {
		rows, err = q.Query(ctx, all)
	} else {
		rows, err = q.Query(ctx, one, pgx.NamedArgs{"key": dayKey})
	}
	if err != nil {
		return nil, wrapErr("activities", err)
	}
	defer rows.Close()

	out := map[string]map[string]domain.Activity{}
	for rows.Next() {
		var key string
		a, err := scanActivity(rows, &key)
		if err != nil {
			return nil, wrapErr("activities: scan", err)
		}
		if out[key] == nil {
			out[key] = map[string]domain.Activity{}
		}
		id := a.ID
		a.ID = ""
		out[key][id] = a
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("activities: rows", err)
	}
	return out, nil
}

func insertActivities(ctx context.Context, tx pgx.Tx, dayKey string, byID map[string]domain.Activity) error {
	const q = `INSERT INTO activities (day_key, id, data) VALUES (@day_key, @id, @data)`

	for id, a := range byID {
		data, err := activityDocument(a)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, q, pgx.NamedArgs{"day_key": dayKey, "id": id, "data": data}); err != nil {
			return err
		}
	}
	return nil
}

// activityDocument encodes the persisted form of an activity. The ID is the
// map key, not part of the document.
func activityDocument(a domain.Activity) ([]byte, error) {
	a.ID = ""
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return json.Marshal(a)
}

// scanActivity reads (day_key, id, data) and decodes the document.
func scanActivity(s scanner, dayKey *string) (domain.Activity, error) {
	var (
		id   string
		data []byte
	)
	if err := s.Scan(dayKey, &id, &data); err != nil {
		return domain.Activity{}, err
	}
	var a domain.Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Activity{}, fmt.Errorf("decode activity %s: %w", id, err)
	}
	a.ID = id
	return a, nil
}
