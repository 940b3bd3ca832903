package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/handler"
)

func tripDeps(m *mockTripServicer) handler.Deps { return handler.Deps{Trips: m} }

func TestGetTrip_EmptyDaysEncodeAsArray(t *testing.T) {
	m := &mockTripServicer{load: func(context.Context) (domain.Trip, error) {
		return domain.Trip{Budget: domain.Budget{Total: 2000}}, nil
	}}

	rec := serve(t, tripDeps(m), http.MethodGet, "/trip", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"days":[]`)
}

func TestGetDay_NotFound(t *testing.T) {
	m := &mockTripServicer{day: func(_ context.Context, id string) (domain.Day, error) {
		assert.Equal(t, "jour42", id)
		return domain.Day{}, fmt.Errorf("service.TripService.Day: %w", domain.ErrNotFound)
	}}

	rec := serve(t, tripDeps(m), http.MethodGet, "/trip/days/jour42", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestReplaceDay_PassesBodyAndPathID(t *testing.T) {
	var gotID string
	var got domain.Day
	m := &mockTripServicer{replaceDay: func(_ context.Context, id string, d domain.Day) (domain.Day, error) {
		gotID, got = id, d
		d.Key = "k1"
		return d, nil
	}}

	body := `{"id":"jour1","date":"10/06","title":"Ajaccio","activityOrder":["a1"],
		"activitiesById":{"a1":{"name":"Plage","price":0,"lat":"41.9","lon":8.7,"booked":false,"tags":[]}}}`
	rec := serve(t, tripDeps(m), http.MethodPut, "/trip/days/jour1", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jour1", gotID)
	require.Contains(t, got.ActivitiesByID, "a1")
	assert.True(t, got.ActivitiesByID["a1"].Lat.Legacy)
	assert.Equal(t, "k1", decode[domain.Day](t, rec).Key)
}

func TestReplaceDay_ValidationError(t *testing.T) {
	m := &mockTripServicer{replaceDay: func(context.Context, string, domain.Day) (domain.Day, error) {
		return domain.Day{}, fmt.Errorf("service.TripService.ReplaceDay: %w: id does not match path", domain.ErrValidation)
	}}

	rec := serve(t, tripDeps(m), http.MethodPut, "/trip/days/jour1", `{"id":"jour2"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "id does not match path", decode[handler.ErrorResponse](t, rec).Error.Message)
}

func TestReplaceDay_AttachmentCleanupFailure(t *testing.T) {
	m := &mockTripServicer{replaceDay: func(_ context.Context, _ string, d domain.Day) (domain.Day, error) {
		return d, &domain.PartialFailureError{Op: "replace day jour3", Failed: []string{"activity_files/jour3/b/1_ticket.pdf"}}
	}}

	rec := serve(t, tripDeps(m), http.MethodPut, "/trip/days/jour3", `{"title":"Bonifacio"}`)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	body := decode[handler.PartialFailureResponse](t, rec)
	assert.Equal(t, "partial_failure", body.Error.Code)
	assert.Equal(t, []string{"activity_files/jour3/b/1_ticket.pdf"}, body.Failed)
}

func TestReplaceDay_MalformedJSON(t *testing.T) {
	rec := serve(t, tripDeps(&mockTripServicer{}), http.MethodPut, "/trip/days/jour1", `{"id":`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSeedTrip(t *testing.T) {
	for name, tc := range map[string]struct {
		seeded bool
		status int
	}{
		"empty store": {seeded: true, status: http.StatusCreated},
		"already seeded": {seeded: false, status: http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			m := &mockTripServicer{seed: func(context.Context) (bool, error) { return tc.seeded, nil }}

			rec := serve(t, tripDeps(m), http.MethodPost, "/trip/seed", "")

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.seeded, decode[map[string]bool](t, rec)["seeded"])
		})
	}
}

func TestImportDays(t *testing.T) {
	m := &mockTripServicer{importDays: func(_ context.Context, days []domain.Day) (int, error) {
		return len(days), nil
	}}

	rec := serve(t, tripDeps(m), http.MethodPost, "/trip/import", `{"days":[{"id":"jour11"},{"id":"jour12"}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, decode[map[string]int](t, rec)["imported"])
}

func TestImportDays_RequiresDays(t *testing.T) {
	rec := serve(t, tripDeps(&mockTripServicer{}), http.MethodPost, "/trip/import", `{"days":[]}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, rec).Error.Message, "days")
}
