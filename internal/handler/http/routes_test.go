package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/service"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

type testAPI struct {
	server  *httptest.Server
	records *store.MemoryRecordStore
	tokens  *store.MemoryChangeTokenStore
	remote  *adapter.MemoryRemoteStore
}

func newTestAPI(t *testing.T, denied ...models.DataType) *testAPI {
	t.Helper()
	storages := &store.Storages{
		Records: store.NewMemoryRecordStore(),
		Tokens:  store.NewMemoryChangeTokenStore(),
		Audit:   store.NewMemoryAuditLog(),
	}
	remote := adapter.NewMemoryRemoteStore()
	services := service.NewServices(
		storages,
		remote,
		privacy.NewPolicyGate(denied, storages.Audit),
		registry.Default(),
		config.Sync{Zones: []string{models.DefaultZone}, PushConcurrency: 2},
		logger.Nop(),
	)

	srv := httptest.NewServer(NewHandler(services, logger.Nop()).Init())
	t.Cleanup(srv.Close)

	return &testAPI{
		server:  srv,
		records: storages.Records.(*store.MemoryRecordStore),
		tokens:  storages.Tokens.(*store.MemoryChangeTokenStore),
		remote:  remote,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, a.server.URL+path, &buf)
	require.NoError(t, err)

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ── records ──────────────────────────────────────────────────────────────────

func TestRoutes_PutGetRemoveRecord(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/records/", map[string]any{
		"record_type": models.RecordTypeMoodLog,
		"payload":     map[string]any{"mood": "calm", "intensity": 2},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[models.SyncableRecord](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	assert.True(t, created.NeedsSync)

	resp = api.do(t, http.MethodGet, "/api/records/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.SyncableRecord](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.DataTypeMood, got.DataType)

	resp = api.do(t, http.MethodDelete, "/api/records/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, err := api.records.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
}

func TestRoutes_RecordErrors(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown record type", http.MethodPost, "/api/records/", map[string]any{"record_type": "steps", "payload": map[string]any{}}, http.StatusBadRequest},
		{"malformed payload", http.MethodPost, "/api/records/", map[string]any{"record_type": models.RecordTypeMoodLog, "payload": map[string]any{"intensity": "high"}}, http.StatusBadRequest},
		{"missing record", http.MethodGet, "/api/records/nope", nil, http.StatusNotFound},
		{"remove missing record", http.MethodDelete, "/api/records/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.want, resp.StatusCode)
			errResp := decode[utils.ErrorResponse](t, resp)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestRoutes_PutRecordInvalidJSON(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/api/records/", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── sync ─────────────────────────────────────────────────────────────────────

func TestRoutes_SyncNowPushesDirtyRecords(t *testing.T) {
	api := newTestAPI(t)

	for _, m := range []string{"calm", "tired"} {
		resp := api.do(t, http.MethodPost, "/api/records/", map[string]any{
			"record_type": models.RecordTypeMoodLog,
			"payload":     map[string]any{"mood": m, "intensity": 1},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := api.do(t, http.MethodPost, "/api/sync/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[service.SyncReport](t, resp)

	assert.NotEmpty(t, report.CycleID)
	assert.Equal(t, 2, report.Push.Pushed)
	assert.Empty(t, report.Error)
	assert.Equal(t, models.ErrorClassNone, report.ErrorClass)
	for _, rec := range api.records.All() {
		assert.False(t, rec.NeedsSync)
	}

	resp = api.do(t, http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[models.SyncStatus](t, resp)
	assert.Equal(t, models.StateIdle, status.State)
}

func TestRoutes_Lifecycle(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		event string
		want  int
	}{
		{"foreground", http.StatusAccepted},
		{"background", http.StatusAccepted},
		{"suspend", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			resp := api.do(t, http.MethodPost, "/api/lifecycle/"+tt.event, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRoutes_Notify(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/sync/notify", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/sync/notify", models.PushNotification{Zone: "health"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestRoutes_TraceIDEchoed(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodGet, api.server.URL+"/api/sync/status", nil)
	require.NoError(t, err)
	req.Header.Set(traceIDHeader, "abc-123")
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "abc-123", resp.Header.Get(traceIDHeader))
}

func TestRoutes_WrongMethodIsNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/api/sync/", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ── privacy ──────────────────────────────────────────────────────────────────

func TestAPI_Privacy(t *testing.T) {
	t.Run("list denied types", func(t *testing.T) {
		api := newTestAPI(t, models.DataTypeMood)

		resp := api.do(t, http.MethodGet, "/api/privacy", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[ConsentResponse](t, resp)
		assert.Equal(t, []models.DataType{models.DataTypeMood}, got.Denied)
	})

	t.Run("grant clears cursors", func(t *testing.T) {
		api := newTestAPI(t, models.DataTypeMood)
		ctx := context.Background()
		require.NoError(t, api.tokens.Save(ctx, models.Cursor{Zone: models.DefaultZone, Token: []byte("7")}))

		resp := api.do(t, http.MethodPut, "/api/privacy/mood", map[string]bool{"allowed": true})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[ConsentResponse](t, resp).Denied)
		cursor, err := api.tokens.Load(ctx, models.DefaultZone)
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	t.Run("revoke", func(t *testing.T) {
		api := newTestAPI(t, models.DataTypeMood)

		resp := api.do(t, http.MethodPut, "/api/privacy/sleep", map[string]bool{"allowed": false})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []models.DataType{models.DataTypeMood, models.DataTypeSleep}, decode[ConsentResponse](t, resp).Denied)
	})

	t.Run("unknown data type", func(t *testing.T) {
		api := newTestAPI(t, models.DataTypeMood)

		resp := api.do(t, http.MethodPut, "/api/privacy/horoscope", map[string]bool{"allowed": true})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing allowed", func(t *testing.T) {
		api := newTestAPI(t, models.DataTypeMood)

		resp := api.do(t, http.MethodPut, "/api/privacy/mood", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// ── remote ───────────────────────────────────────────────────────────────────

func TestAPI_ListRemote(t *testing.T) {
	seed := func(t *testing.T, api *testAPI) {
		t.Helper()
		payload, err := json.Marshal(models.MoodLog{Mood: "calm", Intensity: 2})
		require.NoError(t, err)
		at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
		_, err = api.remote.Save(context.Background(), []models.RemoteRecord{
			{ID: "m1", RecordType: models.RecordTypeMoodLog, Payload: payload, Version: 1, LastModified: at},
			{ID: "m2", RecordType: models.RecordTypeMoodLog, Payload: payload, Version: 1, LastModified: at.Add(time.Hour)},
		})
		require.NoError(t, err)
	}

	t.Run("lists decoded records", func(t *testing.T) {
		api := newTestAPI(t)
		seed(t, api)

		resp := api.do(t, http.MethodGet, "/api/remote/mood_log?since=2026-03-01T08:30:00Z", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[[]models.SyncableRecord](t, resp)
		require.Len(t, got, 1)
		assert.Equal(t, "m2", got[0].ID)
		assert.Equal(t, models.DataTypeMood, got[0].DataType)
		_, err := api.records.Get(context.Background(), "m2")
		assert.ErrorIs(t, err, store.ErrRecordNotFound, "listing must not write locally")
	})

	t.Run("denied data type", func(t *testing.T) {
		api := newTestAPI(t, models.DataTypeMood)
		seed(t, api)

		resp := api.do(t, http.MethodGet, "/api/remote/mood_log", nil)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown record type", func(t *testing.T) {
		api := newTestAPI(t)

		resp := api.do(t, http.MethodGet, "/api/remote/horoscope", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed since", func(t *testing.T) {
		api := newTestAPI(t)

		resp := api.do(t, http.MethodGet, "/api/remote/mood_log?since=yesterday", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
