package store

import (
	"context"

	"github.com/MKhiriev/go-health-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// LocalRecordStore is the per-device record store. Feature modules write to
// it directly; the sync engine only clears dirty flags (push) and applies
// remote changes (pull).
type LocalRecordStore interface {
	// QueryDirty returns every record of recordType with NeedsSync set,
	// tombstones included.
	QueryDirty(ctx context.Context, recordType models.RecordType) ([]models.SyncableRecord, error)
	// Get returns ErrRecordNotFound when no row has id.
	Get(ctx context.Context, id string) (models.SyncableRecord, error)
	// Upsert replaces the whole row. It fails with ErrDataTypeMismatch when
	// the stored row has another data type.
	Upsert(ctx context.Context, record models.SyncableRecord) error
	Delete(ctx context.Context, id string) error
	// ClearDirty clears NeedsSync on rows whose version still equals the
	// acknowledged one.
	ClearDirty(ctx context.Context, refs []models.RecordRef) error
	MarkDirty(ctx context.Context, id string) error
}

// ChangeTokenStore persists one cursor per zone. A nil cursor from Load
// means the zone has never completed a fetch.
type ChangeTokenStore interface {
	Load(ctx context.Context, zone string) (*models.Cursor, error)
	Save(ctx context.Context, cursor models.Cursor) error
	Clear(ctx context.Context, zone string) error
}

// AuditLogRepository is the durable privacy audit trail.
type AuditLogRepository interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}
