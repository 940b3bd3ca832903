package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/auth"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/handler"
	"github.com/pkordes/trip-planner/backend/internal/places"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

// ---- mock TripServicer -----------------------------------------------------

type mockTripServicer struct {
	load       func(ctx context.Context) (domain.Trip, error)
	day        func(ctx context.Context, dayID string) (domain.Day, error)
	replaceDay func(ctx context.Context, dayID string, d domain.Day) (domain.Day, error)
	seed       func(ctx context.Context) (bool, error)
	importDays func(ctx context.Context, days []domain.Day) (int, error)
}

func (m *mockTripServicer) Load(ctx context.Context) (domain.Trip, error) { return m.load(ctx) }
func (m *mockTripServicer) Day(ctx context.Context, dayID string) (domain.Day, error) {
	return m.day(ctx, dayID)
}
func (m *mockTripServicer) ReplaceDay(ctx context.Context, dayID string, d domain.Day) (domain.Day, error) {
	return m.replaceDay(ctx, dayID, d)
}
func (m *mockTripServicer) Seed(ctx context.Context) (bool, error) { return m.seed(ctx) }
func (m *mockTripServicer) Import(ctx context.Context, days []domain.Day) (int, error) {
	return m.importDays(ctx, days)
}

var _ handler.TripServicer = (*mockTripServicer)(nil)

// ---- mock ActivityServicer -------------------------------------------------

type mockActivityServicer struct {
	add              func(ctx context.Context, dayID string, a domain.Activity) (domain.Activity, error)
	update           func(ctx context.Context, dayID, activityID string, p domain.ActivityPatch) (domain.Activity, error)
	del              func(ctx context.Context, dayID, activityID string) error
	move             func(ctx context.Context, dayID, activityID string, to int) ([]string, error)
	setOrder         func(ctx context.Context, dayID string, order []string) error
	addAttachment    func(ctx context.Context, dayID, activityID, filename, contentType string, body io.Reader, size int64) (domain.Attachment, error)
	removeAttachment func(ctx context.Context, dayID, activityID, objectPath string) error
}

func (m *mockActivityServicer) Add(ctx context.Context, dayID string, a domain.Activity) (domain.Activity, error) {
	return m.add(ctx, dayID, a)
}
func (m *mockActivityServicer) Update(ctx context.Context, dayID, activityID string, p domain.ActivityPatch) (domain.Activity, error) {
	return m.update(ctx, dayID, activityID, p)
}
func (m *mockActivityServicer) Delete(ctx context.Context, dayID, activityID string) error {
	return m.del(ctx, dayID, activityID)
}
func (m *mockActivityServicer) Move(ctx context.Context, dayID, activityID string, to int) ([]string, error) {
	return m.move(ctx, dayID, activityID, to)
}
func (m *mockActivityServicer) SetOrder(ctx context.Context, dayID string, order []string) error {
	return m.setOrder(ctx, dayID, order)
}
func (m *mockActivityServicer) AddAttachment(ctx context.Context, dayID, activityID, filename, contentType string, body io.Reader, size int64) (domain.Attachment, error) {
	return m.addAttachment(ctx, dayID, activityID, filename, contentType, body, size)
}
func (m *mockActivityServicer) RemoveAttachment(ctx context.Context, dayID, activityID, objectPath string) error {
	return m.removeAttachment(ctx, dayID, activityID, objectPath)
}

var _ handler.ActivityServicer = (*mockActivityServicer)(nil)

// ---- mock BudgetServicer ---------------------------------------------------

type mockBudgetServicer struct {
	overview          func(ctx context.Context) (domain.BudgetOverview, error)
	recalculate       func(ctx context.Context, total *float64) (domain.Budget, error)
	setCategoryLimits func(ctx context.Context, limits map[string]float64) (domain.Budget, error)
	setTagLimits      func(ctx context.Context, limits map[string]float64) (domain.Budget, error)
}

func (m *mockBudgetServicer) Overview(ctx context.Context) (domain.BudgetOverview, error) {
	return m.overview(ctx)
}
func (m *mockBudgetServicer) Recalculate(ctx context.Context, total *float64) (domain.Budget, error) {
	return m.recalculate(ctx, total)
}
func (m *mockBudgetServicer) SetCategoryLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	return m.setCategoryLimits(ctx, limits)
}
func (m *mockBudgetServicer) SetTagLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error) {
	return m.setTagLimits(ctx, limits)
}

var _ handler.BudgetServicer = (*mockBudgetServicer)(nil)

// ---- mock ChecklistServicer ------------------------------------------------

type mockChecklistServicer struct {
	load     func(ctx context.Context) (domain.Checklist, error)
	items    func(ctx context.Context, f domain.ChecklistFilter) ([]domain.ChecklistItem, error)
	summary  func(ctx context.Context) (service.ChecklistSummary, error)
	add      func(ctx context.Context, it domain.ChecklistItem) (domain.ChecklistItem, error)
	update   func(ctx context.Context, id string, p domain.ChecklistPatch) (domain.ChecklistItem, error)
	toggle   func(ctx context.Context, id string) (domain.ChecklistItem, error)
	del      func(ctx context.Context, id string) error
	move     func(ctx context.Context, id string, to int) ([]string, error)
	setOrder func(ctx context.Context, order []string) error
}

func (m *mockChecklistServicer) Load(ctx context.Context) (domain.Checklist, error) {
	return m.load(ctx)
}
func (m *mockChecklistServicer) Items(ctx context.Context, f domain.ChecklistFilter) ([]domain.ChecklistItem, error) {
	return m.items(ctx, f)
}
func (m *mockChecklistServicer) Summary(ctx context.Context) (service.ChecklistSummary, error) {
	return m.summary(ctx)
}
func (m *mockChecklistServicer) Add(ctx context.Context, it domain.ChecklistItem) (domain.ChecklistItem, error) {
	return m.add(ctx, it)
}
func (m *mockChecklistServicer) Update(ctx context.Context, id string, p domain.ChecklistPatch) (domain.ChecklistItem, error) {
	return m.update(ctx, id, p)
}
func (m *mockChecklistServicer) Toggle(ctx context.Context, id string) (domain.ChecklistItem, error) {
	return m.toggle(ctx, id)
}
func (m *mockChecklistServicer) Delete(ctx context.Context, id string) error { return m.del(ctx, id) }
func (m *mockChecklistServicer) Move(ctx context.Context, id string, to int) ([]string, error) {
	return m.move(ctx, id, to)
}
func (m *mockChecklistServicer) SetOrder(ctx context.Context, order []string) error {
	return m.setOrder(ctx, order)
}

var _ handler.ChecklistServicer = (*mockChecklistServicer)(nil)

// ---- mock GeoServicer ------------------------------------------------------

type mockGeoServicer struct {
	forecast         func(ctx context.Context, lat, lon float64) ([]domain.DailyForecast, error)
	activityForecast func(ctx context.Context, dayID, activityID string) ([]domain.DailyForecast, error)
	nearby           func(ctx context.Context, q places.Query, sortBy string) ([]domain.NearbyPlace, error)
	activityNearby   func(ctx context.Context, dayID, activityID string, q places.Query, sortBy string) ([]domain.NearbyPlace, error)
	geocode          func(ctx context.Context, address string) (geocode.Point, error)
}

func (m *mockGeoServicer) Forecast(ctx context.Context, lat, lon float64) ([]domain.DailyForecast, error) {
	return m.forecast(ctx, lat, lon)
}
func (m *mockGeoServicer) ActivityForecast(ctx context.Context, dayID, activityID string) ([]domain.DailyForecast, error) {
	return m.activityForecast(ctx, dayID, activityID)
}
func (m *mockGeoServicer) Nearby(ctx context.Context, q places.Query, sortBy string) ([]domain.NearbyPlace, error) {
	return m.nearby(ctx, q, sortBy)
}
func (m *mockGeoServicer) ActivityNearby(ctx context.Context, dayID, activityID string, q places.Query, sortBy string) ([]domain.NearbyPlace, error) {
	return m.activityNearby(ctx, dayID, activityID, q, sortBy)
}
func (m *mockGeoServicer) Geocode(ctx context.Context, address string) (geocode.Point, error) {
	return m.geocode(ctx, address)
}

var _ handler.GeoServicer = (*mockGeoServicer)(nil)

type enrichRunnerFunc func(ctx context.Context) (service.EnrichResult, error)

func (f enrichRunnerFunc) Run(ctx context.Context) (service.EnrichResult, error) { return f(ctx) }

var _ handler.EnrichRunner = enrichRunnerFunc(nil)

// ---- mock ExportServicer ---------------------------------------------------

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- mock AuthServicer -----------------------------------------------------

type mockAuthServicer struct {
	authenticate func(ctx context.Context, token string) (*auth.Claims, error)
	login        func(ctx context.Context, email, password string) (service.Session, error)
	logout       func(ctx context.Context, claims *auth.Claims) error
	me           func(ctx context.Context, claims *auth.Claims) (domain.User, error)
}

func (m *mockAuthServicer) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return m.authenticate(ctx, token)
}
func (m *mockAuthServicer) Login(ctx context.Context, email, password string) (service.Session, error) {
	return m.login(ctx, email, password)
}
func (m *mockAuthServicer) Logout(ctx context.Context, claims *auth.Claims) error {
	return m.logout(ctx, claims)
}
func (m *mockAuthServicer) Me(ctx context.Context, claims *auth.Claims) (domain.User, error) {
	return m.me(ctx, claims)
}

var _ handler.AuthServicer = (*mockAuthServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// serve runs one request against a Server built from d.
func serve(t *testing.T, d handler.Deps, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.NewServer(d).Routes().ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the recorded body into a value of type T.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// errorCode returns the machine code of an error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error.Code
}

