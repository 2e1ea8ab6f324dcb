package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/mock"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/models"
)

// newTestPullPipeline wires a single-zone pull pipeline to gomock
// collaborators.
func newTestPullPipeline(t *testing.T, ctrl *gomock.Controller) (
	*pullPipeline,
	*mock.MockLocalRecordStore,
	*mock.MockChangeTokenStore,
	*mock.MockRemoteStore,
	*mock.MockGate,
) {
	t.Helper()
	records := mock.NewMockLocalRecordStore(ctrl)
	tokens := mock.NewMockChangeTokenStore(ctrl)
	remote := mock.NewMockRemoteStore(ctrl)
	gate := mock.NewMockGate(ctrl)

	p := NewPullPipeline(records, tokens, remote, gate, registry.Default(), []string{models.DefaultZone}).(*pullPipeline)
	return p, records, tokens, remote, gate
}

// deliver returns a FetchChanges implementation feeding changes to the
// handler and answering with next.
func deliver(next models.Cursor, changes ...any) func(context.Context, string, *models.Cursor, adapter.ChangeHandler) (models.Cursor, error) {
	return func(_ context.Context, _ string, _ *models.Cursor, h adapter.ChangeHandler) (models.Cursor, error) {
		for _, c := range changes {
			var err error
			switch v := c.(type) {
			case models.RemoteRecord:
				err = h.OnRecord(v)
			case models.Tombstone:
				err = h.OnDeletion(v)
			}
			if err != nil {
				return models.Cursor{}, err
			}
		}
		return next, nil
	}
}

func allowAll(gate *mock.MockGate) {
	gate.EXPECT().IsAllowed(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
	gate.EXPECT().Audit(gomock.Any(), gomock.Any()).AnyTimes()
}

var nextCursor = models.Cursor{Zone: models.DefaultZone, Token: []byte{0, 0, 0, 0, 0, 0, 0, 9}}

// ── records ──────────────────────────────────────────────────────────────────

func TestPullPipeline_RemoteVersionWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := healthEntry("r1", 5)
	local.NeedsSync = false
	incoming := healthEntry("r1", 7).ToRemote()
	incoming.Payload = json.RawMessage(`{"metric":"steps","value":9000}`)

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).DoAndReturn(deliver(nextCursor, incoming))
	records.EXPECT().Get(ctx, "r1").Return(local, nil)
	records.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, rec models.SyncableRecord) error {
		assert.Equal(t, int64(7), rec.Version)
		assert.JSONEq(t, `{"metric":"steps","value":9000}`, string(rec.Payload))
		assert.False(t, rec.NeedsSync)
		return nil
	})
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, models.ConflictCounts{UseRemote: 1}, res.Conflicts)
}

func TestPullPipeline_NewRecordInserted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, healthEntry("n1", 1).ToRemote()))
	records.EXPECT().Get(ctx, "n1").Return(models.SyncableRecord{}, store.ErrRecordNotFound)
	records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Zero(t, res.Conflicts.Total())
}

func TestPullPipeline_LocalVersionWinsIsMarkedDirty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := healthEntry("r1", 9)
	local.NeedsSync = false

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, healthEntry("r1", 4).ToRemote()))
	records.EXPECT().Get(ctx, "r1").Return(local, nil)
	records.EXPECT().MarkDirty(ctx, "r1").Return(nil)
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, models.ConflictCounts{UseLocal: 1}, res.Conflicts)
	assert.Zero(t, res.Applied)
}

func TestPullPipeline_IdenticalRecordIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := healthEntry("r1", 3)
	local.NeedsSync = false

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, local.ToRemote()))
	records.EXPECT().Get(ctx, "r1").Return(local, nil)
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.Zero(t, res.Conflicts.Total())
}

func TestPullPipeline_MergeFailureFallsBackToRemote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := moodLog("m1", 2, "calm")
	local.Payload = json.RawMessage(`{"tags":1}`)
	incoming := moodLog("m1", 2, "tired")

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, incoming.ToRemote()))
	records.EXPECT().Get(ctx, "m1").Return(local, nil)
	records.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, rec models.SyncableRecord) error {
		assert.JSONEq(t, string(incoming.Payload), string(rec.Payload))
		return nil
	})
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.MergeFailures)
	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.RecordErrors, 1)

	var conflictErr *ConflictResolutionError
	require.ErrorAs(t, res.RecordErrors[0], &conflictErr)
	assert.Equal(t, "m1", conflictErr.RecordID)
}

func TestPullPipeline_MergeUnionsConcurrentEdits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := moodLog("m1", 2, "calm")
	local.Payload = json.RawMessage(`{"mood":"calm","intensity":2,"tags":["walk"]}`)
	incoming := moodLog("m1", 2, "calm")
	incoming.Payload = json.RawMessage(`{"mood":"calm","intensity":2,"tags":["tea"]}`)

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, incoming.ToRemote()))
	records.EXPECT().Get(ctx, "m1").Return(local, nil)
	records.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, rec models.SyncableRecord) error {
		var got models.MoodLog
		require.NoError(t, json.Unmarshal(rec.Payload, &got))
		assert.Equal(t, []string{"tea", "walk"}, got.Tags)
		assert.True(t, rec.NeedsSync)
		return nil
	})
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, models.ConflictCounts{Merge: 1}, res.Conflicts)
}

func TestPullPipeline_UndecodableRecordSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, _, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	bad := models.RemoteRecord{ID: "x1", RecordType: "steps", Version: 1}
	gate.EXPECT().Audit(ctx, gomock.Any()).Do(func(_ context.Context, e models.AuditEntry) {
		assert.Equal(t, models.AuditSkipped, e.Action)
		assert.Equal(t, "x1", e.RecordID)
		assert.Contains(t, e.Details, "undecodable")
	})

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).DoAndReturn(deliver(nextCursor, bad))
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.RecordErrors, 1)
	assert.ErrorIs(t, res.RecordErrors[0], registry.ErrUnknownRecordType)
}

// ── deletions ────────────────────────────────────────────────────────────────

func TestPullPipeline_DeletionOfDeniedTypeLeavesRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	local := moodLog("r9", 3, "calm")
	local.NeedsSync = false

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, models.Tombstone{ID: "r9"}))
	records.EXPECT().Get(ctx, "r9").Return(local, nil)
	gate.EXPECT().IsAllowed(ctx, models.DataTypeMood).Return(false)
	gate.EXPECT().Audit(ctx, gomock.Any()).Do(func(_ context.Context, e models.AuditEntry) {
		assert.Equal(t, models.AuditPullDenied, e.Action)
		assert.Equal(t, "r9", e.RecordID)
		assert.Equal(t, models.DataTypeMood, e.DataType)
	})
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Deleted)
}

func TestPullPipeline_DeletionWithoutMarkersDeletesLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := healthEntry("r5", 3)
	local.NeedsSync = false

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, models.Tombstone{ID: "r5"}))
	records.EXPECT().Get(ctx, "r5").Return(local, nil)
	records.EXPECT().Delete(ctx, "r5").Return(nil)
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
}

func TestPullPipeline_DeletionWithoutMarkersKeepsUnpushedEdit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	local := healthEntry("r5", 6)
	local.NeedsSync = true

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, models.Tombstone{ID: "r5"}))
	records.EXPECT().Get(ctx, "r5").Return(local, nil)
	records.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)
	records.EXPECT().MarkDirty(gomock.Any(), gomock.Any()).Times(0)
	gate.EXPECT().IsAllowed(ctx, models.DataTypeBiometric).Return(true)
	var audited []models.AuditEntry
	gate.EXPECT().Audit(ctx, gomock.Any()).Do(func(_ context.Context, e models.AuditEntry) {
		audited = append(audited, e)
	}).AnyTimes()
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
	assert.Equal(t, models.ConflictCounts{UseLocal: 1}, res.Conflicts)
	require.Len(t, audited, 2)
	assert.Equal(t, models.AuditPullAllowed, audited[0].Action)
	assert.Equal(t, models.AuditSkipped, audited[1].Action)
	assert.Contains(t, audited[1].Details, "unversioned deletion")
}

func TestPullPipeline_DeletionLosesToNewerLocalEdit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	local := healthEntry("r5", 6)

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, models.Tombstone{ID: "r5", Version: 5, DeletedAt: testNow.Add(-time.Hour)}))
	records.EXPECT().Get(ctx, "r5").Return(local, nil)
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
	assert.Equal(t, models.ConflictCounts{UseLocal: 1}, res.Conflicts)
}

func TestPullPipeline_DeletionOfUnknownRecordIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, models.Tombstone{ID: "gone", RecordType: models.RecordTypeMoodLog}))
	records.EXPECT().Get(ctx, "gone").Return(models.SyncableRecord{}, store.ErrRecordNotFound)
	gate.EXPECT().Audit(ctx, gomock.Any()).Do(func(_ context.Context, e models.AuditEntry) {
		assert.Equal(t, models.AuditSkipped, e.Action)
		assert.Equal(t, "gone", e.RecordID)
		assert.Contains(t, e.Details, "not present locally")
	})
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
}

func TestPullPipeline_DeletedRecordOfUnknownIDAudited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, models.RemoteRecord{
			ID: "gone", RecordType: models.RecordTypeMoodLog, Version: 4, LastModified: testNow, Deleted: true,
		}))
	gate.EXPECT().IsAllowed(ctx, models.DataTypeMood).Return(true)
	var audited []models.AuditEntry
	gate.EXPECT().Audit(ctx, gomock.Any()).Do(func(_ context.Context, e models.AuditEntry) {
		audited = append(audited, e)
	}).Times(2)
	records.EXPECT().Get(ctx, "gone").Return(models.SyncableRecord{}, store.ErrRecordNotFound)
	records.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(0)
	tokens.EXPECT().Save(ctx, nextCursor).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	require.Len(t, audited, 2)
	assert.Equal(t, models.AuditPullAllowed, audited[0].Action)
	assert.Equal(t, models.AuditSkipped, audited[1].Action)
	assert.Contains(t, audited[1].Details, "not present locally")
}

// ── cursor handling ──────────────────────────────────────────────────────────

func TestPullPipeline_FetchErrorLeavesCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	prev := &models.Cursor{Zone: models.DefaultZone, Token: []byte{0, 0, 0, 0, 0, 0, 0, 2}}

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(prev, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, prev, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ *models.Cursor, h adapter.ChangeHandler) (models.Cursor, error) {
			require.NoError(t, h.OnRecord(healthEntry("a1", 1).ToRemote()))
			return models.Cursor{}, adapter.ErrStreamIncomplete
		})
	records.EXPECT().Get(ctx, "a1").Return(models.SyncableRecord{}, store.ErrRecordNotFound)
	records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "fetch_changes", adapterErr.Op)
	assert.ErrorIs(t, err, adapter.ErrStreamIncomplete)
	assert.Equal(t, 1, res.Applied, "records applied before the failure are kept")
}

func TestPullPipeline_CursorLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, _, tokens, _, _ := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, store.ErrScanningRow)

	_, err := p.PullRemoteChanges(ctx)

	assert.Equal(t, models.ErrorClassCursor, Classify(err))
}

func TestPullPipeline_CursorSaveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, _, tokens, remote, _ := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).DoAndReturn(deliver(nextCursor))
	tokens.EXPECT().Save(ctx, nextCursor).Return(store.ErrExecutingStatement)

	_, err := p.PullRemoteChanges(ctx)

	var cursorErr *CursorPersistenceError
	require.ErrorAs(t, err, &cursorErr)
	assert.Equal(t, models.DefaultZone, cursorErr.Zone)
	assert.ErrorIs(t, err, store.ErrExecutingStatement)
}

func TestPullPipeline_LocalWriteFailureHoldsCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, records, tokens, remote, gate := newTestPullPipeline(t, ctrl)
	ctx := context.Background()
	allowAll(gate)

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, nil, gomock.Any()).
		DoAndReturn(deliver(nextCursor, healthEntry("a1", 1).ToRemote(), healthEntry("a2", 1).ToRemote()))
	records.EXPECT().Get(ctx, gomock.Any()).Return(models.SyncableRecord{}, store.ErrRecordNotFound).Times(2)
	records.EXPECT().Upsert(ctx, gomock.Any()).Return(store.ErrCommitingTransaction)
	records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)

	res, err := p.PullRemoteChanges(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.RecordErrors, 1)
	assert.ErrorIs(t, res.RecordErrors[0], store.ErrCommitingTransaction)
}

func TestPullPipeline_ExpiredCursorIsCleared(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, _, tokens, remote, _ := newTestPullPipeline(t, ctrl)
	ctx := context.Background()

	prev := &models.Cursor{Zone: models.DefaultZone, Token: []byte("stale")}

	tokens.EXPECT().Load(ctx, models.DefaultZone).Return(prev, nil)
	remote.EXPECT().FetchChanges(ctx, models.DefaultZone, prev, gomock.Any()).Return(models.Cursor{}, adapter.ErrCursorExpired)
	tokens.EXPECT().Clear(ctx, models.DefaultZone).Return(nil)

	_, err := p.PullRemoteChanges(ctx)

	assert.ErrorIs(t, err, adapter.ErrCursorExpired)
	assert.Equal(t, models.ErrorClassAdapter, Classify(err))
}

func TestPullPipeline_CancelledDuringFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	records := mock.NewMockLocalRecordStore(ctrl)
	tokens := mock.NewMockChangeTokenStore(ctrl)
	remote := mock.NewMockRemoteStore(ctrl)
	gate := mock.NewMockGate(ctrl)
	allowAll(gate)

	p := NewPullPipeline(records, tokens, remote, gate, registry.Default(), []string{"health", "models"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens.EXPECT().Load(ctx, "health").Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, "health", nil, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ *models.Cursor, h adapter.ChangeHandler) (models.Cursor, error) {
			cancel()
			return models.Cursor{}, h.OnRecord(healthEntry("a1", 1).ToRemote())
		})

	_, err := p.PullRemoteChanges(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.ErrorClassCancelled, Classify(err))
}

func TestPullPipeline_ZoneFailureDoesNotStopNextZone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	records := mock.NewMockLocalRecordStore(ctrl)
	tokens := mock.NewMockChangeTokenStore(ctrl)
	remote := mock.NewMockRemoteStore(ctrl)
	gate := mock.NewMockGate(ctrl)

	p := NewPullPipeline(records, tokens, remote, gate, registry.Default(), []string{"health", "models"})
	ctx := context.Background()

	tokens.EXPECT().Load(ctx, "health").Return(nil, nil)
	tokens.EXPECT().Load(ctx, "models").Return(nil, nil)
	remote.EXPECT().FetchChanges(ctx, "health", nil, gomock.Any()).Return(models.Cursor{}, errors.New("connection reset"))
	remote.EXPECT().FetchChanges(ctx, "models", nil, gomock.Any()).
		DoAndReturn(deliver(models.Cursor{Zone: "models", Token: []byte{0, 0, 0, 0, 0, 0, 0, 1}}))
	tokens.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, c models.Cursor) error {
		assert.Equal(t, "models", c.Zone)
		return nil
	})

	_, err := p.PullRemoteChanges(ctx)

	assert.Equal(t, models.ErrorClassAdapter, Classify(err))
}
