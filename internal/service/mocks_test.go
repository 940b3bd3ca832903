package service_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/storage"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones your test needs. Calling an unset one panics, which flags an
// unexpected repo call.

// ---- DayRepo ---------------------------------------------------------------

type mockDayRepo struct {
	list       func(ctx context.Context) ([]domain.Day, error)
	get        func(ctx context.Context, key string) (domain.Day, error)
	resolveKey func(ctx context.Context, dayID string) (string, error)
	count      func(ctx context.Context) (int, error)
	insertAll  func(ctx context.Context, days []domain.Day) ([]domain.Day, error)
	replace    func(ctx context.Context, day domain.Day) (domain.Day, error)
}

func (m *mockDayRepo) List(ctx context.Context) ([]domain.Day, error) { return m.list(ctx) }
func (m *mockDayRepo) Get(ctx context.Context, key string) (domain.Day, error) {
	return m.get(ctx, key)
}
func (m *mockDayRepo) ResolveKey(ctx context.Context, dayID string) (string, error) {
	return m.resolveKey(ctx, dayID)
}
func (m *mockDayRepo) Count(ctx context.Context) (int, error) { return m.count(ctx) }
func (m *mockDayRepo) InsertAll(ctx context.Context, days []domain.Day) ([]domain.Day, error) {
	return m.insertAll(ctx, days)
}
func (m *mockDayRepo) Replace(ctx context.Context, day domain.Day) (domain.Day, error) {
	return m.replace(ctx, day)
}

var _ repo.DayRepo = (*mockDayRepo)(nil)

// resolvesTo returns a resolveKey func mapping every known day ID to a key.
func resolvesTo(keys map[string]string) func(context.Context, string) (string, error) {
	return func(_ context.Context, id string) (string, error) {
		if k, ok := keys[id]; ok {
			return k, nil
		}
		return "", domain.ErrNotFound
	}
}

// ---- ActivityRepo ----------------------------------------------------------

type mockActivityRepo struct {
	create   func(ctx context.Context, dayKey string, a domain.Activity) (domain.Activity, error)
	get      func(ctx context.Context, dayKey, id string) (domain.Activity, error)
	patch    func(ctx context.Context, dayKey, id string, fields map[string]any) (domain.Activity, error)
	patchIf  func(ctx context.Context, dayKey, id, address string, fields map[string]any) (bool, error)
	delete   func(ctx context.Context, dayKey, id string) error
	move     func(ctx context.Context, dayKey, id string, to int) ([]string, error)
	setOrder func(ctx context.Context, dayKey string, order []string) error
	listAll  func(ctx context.Context) ([]domain.ActivityRef, error)
}

func (m *mockActivityRepo) Create(ctx context.Context, dayKey string, a domain.Activity) (domain.Activity, error) {
	return m.create(ctx, dayKey, a)
}
func (m *mockActivityRepo) Get(ctx context.Context, dayKey, id string) (domain.Activity, error) {
	return m.get(ctx, dayKey, id)
}
func (m *mockActivityRepo) Patch(ctx context.Context, dayKey, id string, fields map[string]any) (domain.Activity, error) {
	return m.patch(ctx, dayKey, id, fields)
}
func (m *mockActivityRepo) PatchIfAddress(ctx context.Context, dayKey, id, address string, fields map[string]any) (bool, error) {
	return m.patchIf(ctx, dayKey, id, address, fields)
}
func (m *mockActivityRepo) Delete(ctx context.Context, dayKey, id string) error {
	return m.delete(ctx, dayKey, id)
}
func (m *mockActivityRepo) Move(ctx context.Context, dayKey, id string, to int) ([]string, error) {
	return m.move(ctx, dayKey, id, to)
}
func (m *mockActivityRepo) SetOrder(ctx context.Context, dayKey string, order []string) error {
	return m.setOrder(ctx, dayKey, order)
}
func (m *mockActivityRepo) ListAll(ctx context.Context) ([]domain.ActivityRef, error) {
	return m.listAll(ctx)
}

var _ repo.ActivityRepo = (*mockActivityRepo)(nil)

// ---- BudgetRepo ------------------------------------------------------------

type mockBudgetRepo struct {
	get               func(ctx context.Context) (domain.Budget, error)
	init              func(ctx context.Context, total float64) error
	save              func(ctx context.Context, spent float64, total *float64) (domain.Budget, error)
	setCategoryLimits func(ctx context.Context, limits map[string]float64) (domain.Budget, error)
	setTagLimits      func(ctx context.Context, limits map[string]float64) (domain.Budget, error)
}

func (m *mockBudgetRepo) Get(ctx context.Context) (domain.Budget, error) { return m.get(ctx) }
func (m *mockBudgetRepo) Init(ctx context.Context, total float64) error {
	return m.init(ctx, total)
}
func (m *mockBudgetRepo) Save(ctx context.Context, spent float64, total *float64) (domain.Budget, error) {
	return m.save(ctx, spent, total)
}
func (m *mockBudgetRepo) SetCategoryLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	return m.setCategoryLimits(ctx, limits)
}
func (m *mockBudgetRepo) SetTagLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	return m.setTagLimits(ctx, limits)
}

var _ repo.BudgetRepo = (*mockBudgetRepo)(nil)

// savingBudget records every spent value written through Save.
func savingBudget(spent *[]float64) *mockBudgetRepo {
	return &mockBudgetRepo{
		save: func(_ context.Context, s float64, total *float64) (domain.Budget, error) {
			*spent = append(*spent, s)
			b := domain.Budget{Spent: s, Total: domain.DefaultBudgetTotal}
			if total != nil {
				b.Total = *total
			}
			return b, nil
		},
	}
}

// ---- ChecklistRepo ---------------------------------------------------------

type mockChecklistRepo struct {
	load     func(ctx context.Context) (domain.Checklist, error)
	create   func(ctx context.Context, item domain.ChecklistItem) (domain.ChecklistItem, error)
	patch    func(ctx context.Context, id string, fields map[string]any) (domain.ChecklistItem, error)
	delete   func(ctx context.Context, id string) error
	move     func(ctx context.Context, id string, to int) ([]string, error)
	setOrder func(ctx context.Context, order []string) error
}

func (m *mockChecklistRepo) Load(ctx context.Context) (domain.Checklist, error) { return m.load(ctx) }
func (m *mockChecklistRepo) Create(ctx context.Context, item domain.ChecklistItem) (domain.ChecklistItem, error) {
	return m.create(ctx, item)
}
func (m *mockChecklistRepo) Patch(ctx context.Context, id string, fields map[string]any) (domain.ChecklistItem, error) {
	return m.patch(ctx, id, fields)
}
func (m *mockChecklistRepo) Delete(ctx context.Context, id string) error { return m.delete(ctx, id) }
func (m *mockChecklistRepo) Move(ctx context.Context, id string, to int) ([]string, error) {
	return m.move(ctx, id, to)
}
func (m *mockChecklistRepo) SetOrder(ctx context.Context, order []string) error {
	return m.setOrder(ctx, order)
}

var _ repo.ChecklistRepo = (*mockChecklistRepo)(nil)

// ---- UserRepo / TokenRepo --------------------------------------------------

type mockUserRepo struct {
	create     func(ctx context.Context, email, hash string) (domain.User, error)
	getByEmail func(ctx context.Context, email string) (domain.User, error)
	getByID    func(ctx context.Context, id uuid.UUID) (domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, email, hash string) (domain.User, error) {
	return m.create(ctx, email, hash)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.getByEmail(ctx, email)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}

var _ repo.UserRepo = (*mockUserRepo)(nil)

type mockTokenRepo struct {
	revoke       func(ctx context.Context, jti string, exp time.Time) error
	isRevoked    func(ctx context.Context, jti string) (bool, error)
	purgeExpired func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockTokenRepo) Revoke(ctx context.Context, jti string, exp time.Time) error {
	return m.revoke(ctx, jti, exp)
}
func (m *mockTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return m.isRevoked(ctx, jti)
}
func (m *mockTokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return m.purgeExpired(ctx, now)
}

var _ repo.TokenRepo = (*mockTokenRepo)(nil)

// ---- storage.Store ---------------------------------------------------------

type mockStore struct {
	put func(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error)
	del func(ctx context.Context, objectPath string) error
}

func (m *mockStore) Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error) {
	return m.put(ctx, objectPath, contentType, body, size)
}
func (m *mockStore) Delete(ctx context.Context, objectPath string) error {
	return m.del(ctx, objectPath)
}

var _ storage.Store = (*mockStore)(nil)

// ---- geocode.Geocoder ------------------------------------------------------

type geocoderFunc func(ctx context.Context, address string) (geocode.Point, error)

func (f geocoderFunc) Geocode(ctx context.Context, address string) (geocode.Point, error) {
	return f(ctx, address)
}

var _ geocode.Geocoder = geocoderFunc(nil)

// ---- Notifier / EnrichTrigger ----------------------------------------------

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) Publish(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type triggerCount struct{ n int }

func (t *triggerCount) Trigger() { t.n++ }
