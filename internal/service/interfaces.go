package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-health-sync/models"
)

// ConflictResolver decides which version of a record survives when the
// local store and the remote store disagree.
type ConflictResolver interface {
	// Resolve is a pure function of both records' markers and the
	// mergeability of their record type. Equal inputs always produce the
	// same decision.
	Resolve(local, remote models.SyncableRecord) models.ConflictDecision
}

// PushPipeline uploads dirty local records to the remote store.
type PushPipeline interface {
	// PushDirty pushes every dirty record of recordType the privacy gate
	// allows. Records the remote store did not acknowledge stay dirty and are
	// retried next cycle. The returned error is set only when the phase
	// could not run as a whole (local query or remote batch failure).
	PushDirty(ctx context.Context, recordType models.RecordType) (models.PushResult, error)

	// PushAll runs PushDirty for every registered record type concurrently
	// and aggregates the results. One failing type does not stop the others.
	PushAll(ctx context.Context) (models.PushResult, error)
}

// PullPipeline applies remote changes to the local store.
type PullPipeline interface {
	// PullRemoteChanges fetches every configured zone from its persisted
	// cursor, resolves conflicts and commits the new cursor only when the
	// zone was delivered completely.
	PullRemoteChanges(ctx context.Context) (models.PullResult, error)
}

// SyncEngine is the entry point used by every trigger.
type SyncEngine interface {
	// RunFullSync runs push then pull. Concurrent callers share the cycle
	// already in flight and receive its outcome.
	RunFullSync(ctx context.Context) models.SyncOutcome

	// Status returns the last published engine state.
	Status() models.SyncStatus

	// SubscribeStatus returns a channel receiving the latest state on every
	// change. Slow readers only ever see the newest value. The channel is
	// closed when ctx is done.
	SubscribeStatus(ctx context.Context) <-chan models.SyncStatus

	// Close cancels the cycle in flight, waits for it to finish and makes
	// later RunFullSync calls return ErrEngineClosed.
	Close()
}

// SyncJob runs RunFullSync on a fixed interval.
type SyncJob interface {
	// Start stops any running job and launches a new one. A non-positive
	// interval defaults to five minutes.
	Start(ctx context.Context, interval time.Duration)

	// Stop cancels the job and blocks until it has exited. It is a no-op when
	// the job is not running.
	Stop()
}

// SubscriptionListener turns remote change notifications into sync cycles.
type SubscriptionListener interface {
	// Start subscribes to every record type and runs a cycle whenever a
	// notification arrives. Notifications received while a cycle runs are
	// folded into one follow-up cycle.
	Start(ctx context.Context)

	// Stop ends every subscription and waits for the running cycle.
	Stop()

	// Notify queues a cycle as if the remote store had sent n.
	Notify(n models.PushNotification)
}

// RecordService is the local write path used by feature modules and the
// CLI. Every mutation bumps the record's markers and marks it dirty.
type RecordService interface {
	// Put creates or updates a live record. An empty ID creates a new one.
	Put(ctx context.Context, record models.SyncableRecord) (models.SyncableRecord, error)

	// Remove turns the record into a tombstone that is pushed next cycle.
	Remove(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (models.SyncableRecord, error)
}

// ConsentService changes which data types may cross the device boundary
// while the engine runs.
type ConsentService interface {
	// Denied returns the denied data types in lexical order.
	Denied() []models.DataType

	// SetAllowed grants or revokes consent for dataType.
	SetAllowed(ctx context.Context, dataType models.DataType, allowed bool) error
}

// RemoteQueryService reads the remote store directly, for inspection. It
// honors consent the same way the pull pipeline does.
type RemoteQueryService interface {
	List(ctx context.Context, recordType models.RecordType, pred models.FetchPredicate) ([]models.SyncableRecord, error)
}
