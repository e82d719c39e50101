package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramirezdlp99/sistema-reservas/internal/database"
	"github.com/dramirezdlp99/sistema-reservas/internal/events"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
	"github.com/dramirezdlp99/sistema-reservas/internal/repository"
	"github.com/dramirezdlp99/sistema-reservas/internal/service"
)

// newTestServer wires the full stack on a throwaway sqlite file.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(io.Discard)
	bus := events.NewEventBus()
	reservations := service.NewReservationService(db, repository.NewLocalLocker(), bus, service.Policy{}, &logger)
	catalog := service.NewCatalogService(db, &logger)
	reports := service.NewReportService(db)

	srv := NewHTTPServer(":0", reservations, catalog, reports, false, &logger)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
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
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// seedSpaceAPI creates a space type and a space through the admin endpoints.
func seedSpaceAPI(t *testing.T, h http.Handler) int64 {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/space-types", map[string]any{
		"actor_id": 99, "actor_role": "admin",
		"name": "meeting room", "min_capacity": 2, "max_capacity": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode[models.SpaceType](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/spaces", map[string]any{
		"actor_id": 99, "actor_role": "admin",
		"name": "Sala A", "type_id": st.ID, "code": "A-1", "capacity": 10, "active": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Space](t, rec).ID
}

func createBody(spaceID int64, date, start, end string) map[string]any {
	return map[string]any{
		"space_id":     spaceID,
		"requester_id": 7,
		"date":         date,
		"start_time":   start,
		"end_time":     end,
		"reason":       "team sync",
	}
}

func TestReservationLifecycle(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)

	// Create: pending by default.
	rec := doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[models.Reservation](t, rec)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Nil(t, res.ConfirmedBy)

	// Confirm as admin.
	confirmPath := fmt.Sprintf("/api/reservations/%s/confirm", res.ID)
	rec = doJSON(t, h, http.MethodPost, confirmPath, map[string]any{"actor_id": 99, "actor_role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conf := decode[ConfirmResponse](t, rec)
	assert.False(t, conf.AlreadyProcessed)
	assert.Equal(t, models.StatusConfirmed, conf.Reservation.Status)
	assert.Equal(t, int64(99), *conf.Reservation.ConfirmedBy)

	// Confirming again reports already processed, not an error.
	rec = doJSON(t, h, http.MethodPost, confirmPath, map[string]any{"actor_id": 99, "actor_role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[ConfirmResponse](t, rec).AlreadyProcessed)

	// Requester cancels.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/reservations/%s/cancel", res.ID), map[string]any{"actor_id": 7})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusCancelled, decode[models.Reservation](t, rec).Status)

	// Confirming a cancelled reservation is rejected.
	rec = doJSON(t, h, http.MethodPost, confirmPath, map[string]any{"actor_id": 99, "actor_role": "admin"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The cancelled slot is free again.
	rec = doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreateReservation_Conflict(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:30", "10:30"))
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	require.NotNil(t, errResp.Conflict)
	assert.Equal(t, "09:00", errResp.Conflict.StartTime)
	assert.Equal(t, "10:00", errResp.Conflict.EndTime)

	// Back-to-back is fine.
	rec = doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "10:00", "11:00"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreateReservation_BadRequests(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"past date", createBody(spaceID, "2020-01-15", "09:00", "10:00")},
		{"inverted interval", createBody(spaceID, "2030-01-15", "10:00", "09:00")},
		{"zero-length interval", createBody(spaceID, "2030-01-15", "10:00", "10:00")},
		{"malformed date", createBody(spaceID, "15/01/2030", "09:00", "10:00")},
		{"missing requester", map[string]any{"space_id": spaceID, "date": "2030-01-15", "start_time": "09:00", "end_time": "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/reservations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		body := createBody(spaceID, "2030-01-15", "09:00", "10:00")
		body["surprise"] = true
		rec := doJSON(t, h, http.MethodPost, "/api/reservations", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEditReservation(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[models.Reservation](t, rec)

	t.Run("requester reschedules", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, "/api/reservations/"+res.ID, map[string]any{
			"actor_id": 7, "start_time": "11:00", "end_time": "12:00",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[models.Reservation](t, rec)
		assert.Equal(t, "11:00", got.StartTime)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, "/api/reservations/"+res.ID, map[string]any{
			"actor_id": 8, "start_time": "13:00", "end_time": "14:00",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing reservation", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, "/api/reservations/nope", map[string]any{
			"actor_id": 7, "start_time": "13:00", "end_time": "14:00",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSpaceEndpoints(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)

	t.Run("non-admin cannot create spaces", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/spaces", map[string]any{
			"actor_id": 7, "name": "Sala B", "code": "B-1", "capacity": 5,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("deactivated space rejects new reservations", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/spaces/%d/deactivate", spaceID), map[string]any{
			"actor_id": 99, "actor_role": "admin",
		})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/spaces/%d/activate", spaceID), map[string]any{
			"actor_id": 99, "actor_role": "admin",
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("calendar lists active bookings", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet,
			fmt.Sprintf("/api/spaces/%d/calendar?from=2030-01-01&to=2030-01-31", spaceID), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[[]models.Reservation](t, rec)
		assert.Len(t, got, 1)
	})
}

func TestReportEndpoint(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)
	rec := doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("forbidden for users", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/reports/summary?actor_id=7", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("summary for admins", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/reports/summary?actor_id=99&actor_role=admin", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		sum := decode[service.UsageSummary](t, rec)
		assert.Equal(t, 1, sum.ByStatus[models.StatusPending])
		assert.Len(t, sum.WeeklyOccupancy, 7)
	})
}

func TestUpcomingEndpoint(t *testing.T) {
	h := newTestServer(t)
	spaceID := seedSpaceAPI(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-15", "09:00", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/api/reservations", createBody(spaceID, "2030-01-16", "09:00", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/requesters/7/upcoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]models.Reservation](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "2030-01-15", got[0].Date)
}
