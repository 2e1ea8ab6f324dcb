package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/models"
)

func memoryConfig() *config.StructuredConfig {
	return &config.StructuredConfig{
		App:     config.App{Name: "test", DeviceID: "dev-1"},
		Storage: config.Storage{DB: config.DB{DSN: config.MemoryDSN}},
		Remote:  config.Remote{Address: config.MemoryRemote, RequestTimeout: time.Second},
		Sync: config.Sync{
			Zones:           []string{models.DefaultZone},
			DeniedDataTypes: []string{string(models.DataTypeMood)},
			PushConcurrency: 2,
		},
	}
}

func newTestApp(t *testing.T) (*App, *adapter.MemoryRemoteStore) {
	t.Helper()
	storages, err := store.NewStorages(context.Background(), config.Storage{DB: config.DB{DSN: config.MemoryDSN}}, logger.Nop())
	require.NoError(t, err)
	remote := adapter.NewMemoryRemoteStore()

	a := newApp(memoryConfig(), storages, remote, logger.Nop())
	t.Cleanup(func() { _ = a.Close() })
	return a, remote
}

func TestNewApp_MemoryBackends(t *testing.T) {
	a, err := NewApp(context.Background(), memoryConfig(), logger.Nop())

	require.NoError(t, err)
	assert.NotNil(t, a.Records())
	assert.NoError(t, a.Close())
}

func TestApp_SyncOnceRespectsDeniedTypes(t *testing.T) {
	ctx := context.Background()
	a, remote := newTestApp(t)

	_, err := a.Records().Put(ctx, models.SyncableRecord{ID: "s1", RecordType: models.RecordTypeSleepSession, Payload: json.RawMessage(`{"quality":4}`)})
	require.NoError(t, err)
	_, err = a.Records().Put(ctx, models.SyncableRecord{ID: "m1", RecordType: models.RecordTypeMoodLog, Payload: json.RawMessage(`{"mood":"calm","intensity":1}`)})
	require.NoError(t, err)

	out := a.SyncOnce(ctx)

	require.NoError(t, out.Err)
	assert.Equal(t, 1, out.Push.Pushed)
	assert.Equal(t, 1, out.Push.Skipped)
	_, ok := remote.Record("s1")
	assert.True(t, ok)
	_, ok = remote.Record("m1")
	assert.False(t, ok)

	entries, err := a.Audit(ctx, 10)
	require.NoError(t, err)
	var denied bool
	for _, e := range entries {
		if e.Action == models.AuditPushDenied && e.RecordID == "m1" {
			denied = true
		}
	}
	assert.True(t, denied)
}

func TestApp_ResetCursor(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)

	_, err := a.Records().Put(ctx, models.SyncableRecord{ID: "s1", RecordType: models.RecordTypeSleepSession, Payload: json.RawMessage(`{"quality":4}`)})
	require.NoError(t, err)
	require.NoError(t, a.SyncOnce(ctx).Err)

	cursor, err := a.Cursor(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, cursor)

	require.NoError(t, a.ResetCursor(ctx, ""))

	cursor, err = a.Cursor(ctx, models.DefaultZone)
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t)
	a.cfg.Server.HTTPAddress = "127.0.0.1:0"
	a.cfg.Sync.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_RunWithoutServer(t *testing.T) {
	a, _ := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, a.Run(ctx))
}
