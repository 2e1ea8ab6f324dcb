package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-sync/models"
)

// MemoryRecordStore is an in-process LocalRecordStore. It backs the
// ":memory:" DSN and the engine's property tests.
type MemoryRecordStore struct {
	mu    sync.RWMutex
	items map[string]models.SyncableRecord
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{items: make(map[string]models.SyncableRecord)}
}

func cloneRecord(r models.SyncableRecord) models.SyncableRecord {
	r.Payload = slices.Clone(r.Payload)
	return r
}

func (s *MemoryRecordStore) QueryDirty(_ context.Context, recordType models.RecordType) ([]models.SyncableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SyncableRecord
	for _, r := range s.items {
		if r.RecordType == recordType && r.NeedsSync {
			out = append(out, cloneRecord(r))
		}
	}
	slices.SortFunc(out, func(a, b models.SyncableRecord) int {
		if c := a.LastModified.Compare(b.LastModified); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryRecordStore) Get(_ context.Context, id string) (models.SyncableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return models.SyncableRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return cloneRecord(r), nil
}

func (s *MemoryRecordStore) Upsert(_ context.Context, rec models.SyncableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.items[rec.ID]; ok && stored.DataType != rec.DataType {
		return fmt.Errorf("%w: id %s stored as %s, got %s", ErrDataTypeMismatch, rec.ID, stored.DataType, rec.DataType)
	}
	s.items[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

func (s *MemoryRecordStore) ClearDirty(_ context.Context, refs []models.RecordRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range refs {
		r, ok := s.items[ref.ID]
		if !ok || r.Version != ref.Version {
			continue
		}
		r.NeedsSync = false
		s.items[ref.ID] = r
	}
	return nil
}

func (s *MemoryRecordStore) MarkDirty(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	r.NeedsSync = true
	s.items[id] = r
	return nil
}

// All returns every stored record ordered by id.
func (s *MemoryRecordStore) All() []models.SyncableRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SyncableRecord, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, cloneRecord(r))
	}
	slices.SortFunc(out, func(a, b models.SyncableRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// MemoryChangeTokenStore is an in-process ChangeTokenStore. Cursors are kept
// as encoded blobs so a restart-free test observes the same format handling
// as the SQLite store.
type MemoryChangeTokenStore struct {
	mu    sync.Mutex
	blobs map[string]storedToken
}

type storedToken struct {
	blob      []byte
	updatedAt time.Time
}

func NewMemoryChangeTokenStore() *MemoryChangeTokenStore {
	return &MemoryChangeTokenStore{blobs: make(map[string]storedToken)}
}

func (s *MemoryChangeTokenStore) Load(ctx context.Context, zone string) (*models.Cursor, error) {
	s.mu.Lock()
	t, ok := s.blobs[zone]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return decodeStoredCursor(ctx, zone, t.blob, t.updatedAt), nil
}

func (s *MemoryChangeTokenStore) Save(_ context.Context, cursor models.Cursor) error {
	blob, err := models.EncodeCursor(cursor)
	if err != nil {
		return err
	}
	updatedAt := cursor.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	s.mu.Lock()
	s.blobs[cursor.Zone] = storedToken{blob: blob, updatedAt: updatedAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryChangeTokenStore) Clear(_ context.Context, zone string) error {
	s.mu.Lock()
	delete(s.blobs, zone)
	s.mu.Unlock()
	return nil
}

// PutRaw stores blob for zone as is.
func (s *MemoryChangeTokenStore) PutRaw(zone string, blob []byte) {
	s.mu.Lock()
	s.blobs[zone] = storedToken{blob: blob, updatedAt: time.Now()}
	s.mu.Unlock()
}

// MemoryAuditLog is an in-process AuditLogRepository.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Append(_ context.Context, e models.AuditEntry) error {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return nil
}

func (l *MemoryAuditLog) Recent(_ context.Context, limit int) ([]models.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.AuditEntry, 0, min(limit, len(l.entries)))
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}
