package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/handler"
)

const actsPath = "/trip/days/jour1/activities"

func activityDeps(m *mockActivityServicer) handler.Deps { return handler.Deps{Activities: m} }

func TestCreateActivity(t *testing.T) {
	var got domain.Activity
	m := &mockActivityServicer{add: func(_ context.Context, dayID string, a domain.Activity) (domain.Activity, error) {
		assert.Equal(t, "jour1", dayID)
		got = a
		a.ID = "a9"
		return a, nil
	}}

	body := `{"name":"Citadelle de Calvi","price":12,"category":"Activité","tags":["calvi"],"lat":42.567,"lon":8.757}`
	rec := serve(t, activityDeps(m), http.MethodPost, actsPath, body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.CategoryActivity, got.Category)
	assert.Equal(t, domain.Coord(42.567), got.Lat)
	assert.Equal(t, "a9", decode[domain.Activity](t, rec).ID)
}

func TestCreateActivity_RequestValidation(t *testing.T) {
	for name, body := range map[string]string{
		"missing name":   `{"price":10}`,
		"negative price": `{"name":"x","price":-1}`,
		"bad latitude":   `{"name":"x","lat":123,"lon":8}`,
		"empty body":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, activityDeps(&mockActivityServicer{}), http.MethodPost, actsPath, body)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "validation_error", errorCode(t, rec))
		})
	}
}

func TestCreateActivity_UnknownDay(t *testing.T) {
	m := &mockActivityServicer{add: func(context.Context, string, domain.Activity) (domain.Activity, error) {
		return domain.Activity{}, fmt.Errorf("repo.DayRepo.ResolveKey: %w", domain.ErrNotFound)
	}}

	rec := serve(t, activityDeps(m), http.MethodPost, actsPath, `{"name":"x"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "day not found", decode[handler.ErrorResponse](t, rec).Error.Message)
}

func TestUpdateActivity_OnlySentFieldsArePatched(t *testing.T) {
	var got domain.ActivityPatch
	m := &mockActivityServicer{update: func(_ context.Context, dayID, id string, p domain.ActivityPatch) (domain.Activity, error) {
		assert.Equal(t, "a1", id)
		got = p
		return domain.Activity{ID: id, Name: "Plage", Booked: true}, nil
	}}

	rec := serve(t, activityDeps(m), http.MethodPatch, actsPath+"/a1", `{"booked":true,"lat":41.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Booked)
	assert.True(t, *got.Booked)
	require.NotNil(t, got.Lat)
	assert.Equal(t, domain.Coord(41.5), *got.Lat)
	assert.Nil(t, got.Name)
	assert.Nil(t, got.Lon)
}

func TestDeleteActivity(t *testing.T) {
	m := &mockActivityServicer{del: func(context.Context, string, string) error { return nil }}

	rec := serve(t, activityDeps(m), http.MethodDelete, actsPath+"/a1", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteActivity_PartialFailure(t *testing.T) {
	m := &mockActivityServicer{del: func(context.Context, string, string) error {
		return &domain.PartialFailureError{Op: "delete activity a1", Failed: []string{"jour1/a1/1_plan.pdf"}}
	}}

	rec := serve(t, activityDeps(m), http.MethodDelete, actsPath+"/a1", "")

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	body := decode[handler.PartialFailureResponse](t, rec)
	assert.Equal(t, "partial_failure", body.Error.Code)
	assert.Equal(t, []string{"jour1/a1/1_plan.pdf"}, body.Failed)
}

func TestMoveActivity(t *testing.T) {
	m := &mockActivityServicer{move: func(_ context.Context, _, id string, to int) ([]string, error) {
		assert.Equal(t, "a3", id)
		assert.Equal(t, 0, to)
		return []string{"a3", "a1", "a2"}, nil
	}}

	rec := serve(t, activityDeps(m), http.MethodPost, actsPath+"/a3/move", `{"toIndex":0}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a3", "a1", "a2"}, decode[handler.OrderResponse](t, rec).Order)
}

func TestMoveActivity_RequiresIndex(t *testing.T) {
	rec := serve(t, activityDeps(&mockActivityServicer{}), http.MethodPost, actsPath+"/a3/move", `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSetActivityOrder(t *testing.T) {
	var got []string
	m := &mockActivityServicer{setOrder: func(_ context.Context, _ string, order []string) error {
		got = order
		return nil
	}}

	rec := serve(t, activityDeps(m), http.MethodPut, actsPath+"/order", `{"order":["a2","a1"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a2", "a1"}, got)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAttachment(t *testing.T) {
	var gotName string
	var gotBody []byte
	m := &mockActivityServicer{addAttachment: func(_ context.Context, dayID, id, filename, _ string, body io.Reader, _ int64) (domain.Attachment, error) {
		gotName = filename
		gotBody, _ = io.ReadAll(body)
		return domain.Attachment{Name: filename, Path: "jour1/a1/1_" + filename, URL: "/files/jour1/a1/1_" + filename}, nil
	}}

	body, ct := multipartBody(t, "file", "billet.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, actsPath+"/a1/attachments", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	handler.NewServer(activityDeps(m)).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "billet.pdf", gotName)
	assert.Equal(t, []byte("%PDF-1.4"), gotBody)
	assert.Equal(t, "jour1/a1/1_billet.pdf", decode[domain.Attachment](t, rec).Path)
}

func TestUploadAttachment_TooLarge(t *testing.T) {
	body, ct := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("x"), 2048))
	req := httptest.NewRequest(http.MethodPost, actsPath+"/a1/attachments", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	d := activityDeps(&mockActivityServicer{})
	d.MaxUploadBytes = 512
	handler.NewServer(d).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", errorCode(t, rec))
}

func TestUploadAttachment_MissingFile(t *testing.T) {
	body, ct := multipartBody(t, "other", "x.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, actsPath+"/a1/attachments", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	handler.NewServer(activityDeps(&mockActivityServicer{})).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteAttachment(t *testing.T) {
	m := &mockActivityServicer{removeAttachment: func(_ context.Context, _, _, p string) error {
		if p != "jour1/a1/1_billet.pdf" {
			return fmt.Errorf("%w: attachment", domain.ErrNotFound)
		}
		return nil
	}}
	d := activityDeps(m)

	rec := serve(t, d, http.MethodDelete, actsPath+"/a1/attachments?path=jour1/a1/1_billet.pdf", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, d, http.MethodDelete, actsPath+"/a1/attachments?path=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, d, http.MethodDelete, actsPath+"/a1/attachments", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteAttachment_StorageFailureIs502(t *testing.T) {
	m := &mockActivityServicer{removeAttachment: func(context.Context, string, string, string) error {
		return fmt.Errorf("service.ActivityService.RemoveAttachment: %w: access denied", domain.ErrRemote)
	}}

	rec := serve(t, activityDeps(m), http.MethodDelete, actsPath+"/a1/attachments?path=x", "")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "remote_error", errorCode(t, rec))
}
