package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/capacity"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
	"github.com/Shivanand-hulikatti/event-hosting/internal/repository"
	"github.com/Shivanand-hulikatti/event-hosting/internal/service"
	"github.com/Shivanand-hulikatti/event-hosting/internal/stats"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := repository.NewMemoryStore()
	for id := int64(1); id <= 5; id++ {
		store.AddUser(id)
	}
	store.AddCategory(1)

	log := zap.NewNop()
	events := service.NewEventService(store, stats.Nop{}, log)
	requests := service.NewRequestService(store, capacity.NewAllocator(log), log)
	return NewRouter(NewEventHandler(events, log), NewRequestHandler(requests, log), log)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newEventBody(limit int, moderation bool) map[string]any {
	return map[string]any{
		"title":             "Board games night",
		"annotation":        "Classic and modern board games for everyone",
		"description":       "Tables, snacks and a few hundred games to choose from, all welcome",
		"category":          1,
		"eventDate":         time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"location":          map[string]float64{"lat": 59.93, "lon": 30.31},
		"participantLimit":  limit,
		"requestModeration": moderation,
	}
}

// createPublished creates an event as user 1 and publishes it.
func createPublished(t *testing.T, h http.Handler, limit int, moderation bool) model.Event {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/users/1/events", newEventBody(limit, moderation))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[model.Event](t, rec)
	assert.Equal(t, model.EventPending, e.State)

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/admin/events/%d", e.ID),
		map[string]string{"stateAction": string(model.ActionPublishEvent)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[model.Event](t, rec)
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateEventErrors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"unknown field", "/users/1/events", map[string]any{"bogus": true}, http.StatusBadRequest},
		{"invalid user id", "/users/abc/events", newEventBody(0, true), http.StatusBadRequest},
		{"unknown user", "/users/99/events", newEventBody(0, true), http.StatusNotFound},
		{"short title", "/users/1/events", func() map[string]any {
			b := newEventBody(0, true)
			b["title"] = "ab"
			return b
		}(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[model.ErrorResponse](t, rec).Error)
		})
	}
}

func TestRequestFlow(t *testing.T) {
	h := newTestRouter(t)
	e := createPublished(t, h, 0, false)
	assert.Equal(t, model.EventPublished, e.State)

	rec := do(t, h, http.MethodPost, fmt.Sprintf("/users/2/requests?eventId=%d", e.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decode[model.ParticipationRequest](t, rec)
	assert.Equal(t, model.RequestConfirmed, req.Status)

	// duplicate
	rec = do(t, h, http.MethodPost, fmt.Sprintf("/users/2/requests?eventId=%d", e.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// own event
	rec = do(t, h, http.MethodPost, fmt.Sprintf("/users/1/requests?eventId=%d", e.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/users/2/requests", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/users/2/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ParticipationRequest](t, rec), 1)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/events/%d", e.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.Event](t, rec).ConfirmedRequests)

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/users/2/requests/%d/cancel", req.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.RequestCanceled, decode[model.ParticipationRequest](t, rec).Status)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/events/%d", e.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[model.Event](t, rec).ConfirmedRequests)
}

func TestUpdateRequestStatusesPartial(t *testing.T) {
	h := newTestRouter(t)
	e := createPublished(t, h, 1, true)

	var ids []int64
	for _, user := range []int64{2, 3} {
		rec := do(t, h, http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", user, e.ID), nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		r := decode[model.ParticipationRequest](t, rec)
		assert.Equal(t, model.RequestPending, r.Status)
		ids = append(ids, r.ID)
	}

	rec := do(t, h, http.MethodPatch, fmt.Sprintf("/users/1/events/%d/requests", e.ID),
		model.StatusUpdateRequest{RequestIDs: ids, Status: model.RequestConfirmed})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decode[partialResultResponse](t, rec)
	assert.NotEmpty(t, body.Error)
	require.Len(t, body.ConfirmedRequests, 1)
	assert.Equal(t, ids[0], body.ConfirmedRequests[0].ID)
	assert.Empty(t, body.RejectedRequests)

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/users/1/events/%d/requests", e.ID),
		model.StatusUpdateRequest{RequestIDs: ids[1:], Status: model.RequestRejected})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[model.StatusUpdateResult](t, rec)
	assert.Len(t, result.RejectedRequests, 1)
	assert.Empty(t, result.ConfirmedRequests)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/1/events/%d/requests", e.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ParticipationRequest](t, rec), 2)

	// someone else's event
	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/2/events/%d/requests", e.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicEvents(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/users/1/events", newEventBody(0, true))
	require.Equal(t, http.StatusCreated, rec.Code)
	pending := decode[model.Event](t, rec)
	published := createPublished(t, h, 0, true)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/events/%d", pending.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Event](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, published.ID, list[0].ID)

	rec = do(t, h, http.MethodGet, "/events?sort=NEWEST", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/events?rangeStart=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/events?categories=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminSearchAndUserEvents(t *testing.T) {
	h := newTestRouter(t)
	createPublished(t, h, 0, true)
	rec := do(t, h, http.MethodPost, "/users/1/events", newEventBody(0, true))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/admin/events?states=PENDING&users=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/admin/events?states=DRAFT", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/users/1/events?from=0&size=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/users/1/events?size=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserEventEditAfterPublish(t *testing.T) {
	h := newTestRouter(t)
	e := createPublished(t, h, 0, true)

	rec := do(t, h, http.MethodPatch, fmt.Sprintf("/users/1/events/%d", e.ID), map[string]string{"title": "Renamed"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/1/events/%d", e.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, e.Title, decode[model.Event](t, rec).Title)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/2/events/%d", e.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodOptions, "/events", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
