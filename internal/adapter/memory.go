package adapter

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-sync/models"
)

// MemoryRemoteStore is an in-process RemoteStore shared by any number of
// engines. Every accepted write appends to a change log; a cursor is the
// big-endian sequence number of the last change it covers.
//
// Writes carrying a lower version than the stored one are rejected with
// ErrConflict, equal versions overwrite.
type MemoryRemoteStore struct {
	mu      sync.Mutex
	seq     uint64
	records map[string]models.RemoteRecord
	log     []logEntry
	zoneOf  func(models.RecordType) string
	subs    map[models.RecordType][]chan models.PushNotification
	now     func() time.Time
}

type logEntry struct {
	seq  uint64
	id   string
	zone string
}

// MemoryOption configures a MemoryRemoteStore.
type MemoryOption func(*MemoryRemoteStore)

// WithZones assigns record types to zones. Types missing from zones live in
// models.DefaultZone.
func WithZones(zones map[models.RecordType]string) MemoryOption {
	return func(s *MemoryRemoteStore) {
		s.zoneOf = func(rt models.RecordType) string {
			if z, ok := zones[rt]; ok {
				return z
			}
			return models.DefaultZone
		}
	}
}

func NewMemoryRemoteStore(opts ...MemoryOption) *MemoryRemoteStore {
	s := &MemoryRemoteStore{
		records: make(map[string]models.RemoteRecord),
		zoneOf:  func(models.RecordType) string { return models.DefaultZone },
		subs:    make(map[models.RecordType][]chan models.PushNotification),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryRemoteStore) Save(ctx context.Context, records []models.RemoteRecord) ([]models.RecordResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]models.RecordResult, 0, len(records))
	for _, rec := range records {
		rec.Payload = slices.Clone(rec.Payload)
		results = append(results, models.RecordResult{ID: rec.ID, Err: s.applyLocked(rec)})
	}
	return results, nil
}

func (s *MemoryRemoteStore) Delete(ctx context.Context, tombstones []models.Tombstone) ([]models.RecordResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]models.RecordResult, 0, len(tombstones))
	for _, t := range tombstones {
		rec := models.RemoteRecord{
			ID:           t.ID,
			RecordType:   t.RecordType,
			Version:      t.Version,
			LastModified: t.DeletedAt,
			Deleted:      true,
		}
		if prev, ok := s.records[t.ID]; ok {
			rec.DataType = prev.DataType
		}
		results = append(results, models.RecordResult{ID: t.ID, Err: s.applyLocked(rec)})
	}
	return results, nil
}

func (s *MemoryRemoteStore) applyLocked(rec models.RemoteRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", ErrRecordRejected)
	}
	if prev, ok := s.records[rec.ID]; ok && prev.Version > rec.Version {
		return fmt.Errorf("%w: %s has version %d, got %d", ErrConflict, rec.ID, prev.Version, rec.Version)
	}

	s.seq++
	zone := s.zoneOf(rec.RecordType)
	s.records[rec.ID] = rec
	s.log = append(s.log, logEntry{seq: s.seq, id: rec.ID, zone: zone})

	n := models.PushNotification{Zone: zone, RecordType: rec.RecordType, At: s.now()}
	for _, ch := range s.subs[rec.RecordType] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

func (s *MemoryRemoteStore) Fetch(ctx context.Context, recordType models.RecordType, pred models.FetchPredicate) ([]models.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RemoteRecord
	for _, rec := range s.records {
		if rec.RecordType != recordType || rec.Deleted {
			continue
		}
		if len(pred.IDs) > 0 && !slices.Contains(pred.IDs, rec.ID) {
			continue
		}
		if pred.ModifiedSince != nil && !rec.LastModified.After(*pred.ModifiedSince) {
			continue
		}
		rec.Payload = slices.Clone(rec.Payload)
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b models.RemoteRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// FetchChanges delivers the current state of every record of zone changed
// after cursor, once per record, in change order. The snapshot is taken
// before the first callback so handlers may write to the store.
func (s *MemoryRemoteStore) FetchChanges(ctx context.Context, zone string, cursor *models.Cursor, h ChangeHandler) (models.Cursor, error) {
	from, err := decodeSeq(cursor)
	if err != nil {
		return models.Cursor{}, err
	}

	s.mu.Lock()
	upTo := s.seq
	latest := make(map[string]uint64)
	for _, e := range s.log {
		if e.seq > from && e.zone == zone {
			latest[e.id] = e.seq
		}
	}
	changes := make([]models.RemoteRecord, 0, len(latest))
	for _, e := range s.log {
		if seq, ok := latest[e.id]; ok && seq == e.seq {
			rec := s.records[e.id]
			rec.Payload = slices.Clone(rec.Payload)
			changes = append(changes, rec)
		}
	}
	s.mu.Unlock()

	for _, rec := range changes {
		if err = ctx.Err(); err != nil {
			return models.Cursor{}, err
		}

		if rec.Deleted {
			if h.OnDeletion != nil {
				err = h.OnDeletion(models.Tombstone{
					ID:         rec.ID,
					RecordType: rec.RecordType,
					Version:    rec.Version,
					DeletedAt:  rec.LastModified,
				})
			}
		} else if h.OnRecord != nil {
			err = h.OnRecord(rec)
		}
		if err != nil {
			return models.Cursor{}, err
		}
	}

	return models.Cursor{Zone: zone, Token: encodeSeq(upTo), UpdatedAt: s.now()}, nil
}

func (s *MemoryRemoteStore) Subscribe(ctx context.Context, recordType models.RecordType) (<-chan models.PushNotification, error) {
	ch := make(chan models.PushNotification, 1)

	s.mu.Lock()
	s.subs[recordType] = append(s.subs[recordType], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs[recordType] = slices.DeleteFunc(s.subs[recordType], func(c chan models.PushNotification) bool { return c == ch })
		close(ch)
	}()

	return ch, nil
}

// Record returns the stored state of id, tombstones included.
func (s *MemoryRemoteStore) Record(id string) (models.RemoteRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	rec.Payload = slices.Clone(rec.Payload)
	return rec, ok
}

func encodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func decodeSeq(c *models.Cursor) (uint64, error) {
	if c == nil || len(c.Token) == 0 {
		return 0, nil
	}
	if len(c.Token) != 8 {
		return 0, fmt.Errorf("%w: token has %d bytes", ErrCursorExpired, len(c.Token))
	}
	return binary.BigEndian.Uint64(c.Token), nil
}
