// Package registry maps record types to the codecs that decode, validate and
// merge their payloads. The sync pipelines dispatch through a Registry
// instead of switching over concrete record types.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-sync/models"
)

var (
	ErrUnknownRecordType   = errors.New("unknown record type")
	ErrDuplicateRecordType = errors.New("record type already registered")
	ErrDataTypeMismatch    = errors.New("record data type does not match its record type")
	ErrNotMergeable        = errors.New("record type is not mergeable")
	ErrEmptyPayload        = errors.New("empty record payload")
	ErrMalformedPayload    = errors.New("malformed record payload")
	ErrMissingRecordID     = errors.New("record id is missing")
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[models.RecordType]Codec
}

// New returns a Registry holding codecs. It panics on duplicates, so it is
// meant for static wiring; use Register for dynamic registration.
func New(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[models.RecordType]Codec, len(codecs))}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Default returns a Registry with every built-in health record type.
func Default() *Registry {
	return New(
		NewCodec[models.HealthEntry](models.RecordTypeHealthEntry),
		NewCodec[models.SleepSession](models.RecordTypeSleepSession),
		NewCodec[models.MoodLog](models.RecordTypeMoodLog),
		NewCodec[models.MLModelMetadata](models.RecordTypeMLModelMetadata),
		NewCodec[models.ExportRequest](models.RecordTypeExportRequest),
	)
}

// Register adds c to the registry.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codecs[c.RecordType()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRecordType, c.RecordType())
	}
	r.codecs[c.RecordType()] = c
	return nil
}

// Lookup returns the codec registered for recordType.
func (r *Registry) Lookup(recordType models.RecordType) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codecs[recordType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, recordType)
	}
	return c, nil
}

// Types returns every registered record type in lexical order.
func (r *Registry) Types() []models.RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.RecordType, 0, len(r.codecs))
	for t := range r.codecs {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Mergeable reports whether recordType supports field-level merging.
// Unknown types are not mergeable.
func (r *Registry) Mergeable(recordType models.RecordType) bool {
	c, err := r.Lookup(recordType)
	if err != nil {
		return false
	}
	return c.Mergeable()
}

// DecodeRemote turns a remote record into a SyncableRecord. The data type
// always comes from the codec; a remote record claiming another one is
// rejected. Tombstones carry no payload and skip payload validation.
func (r *Registry) DecodeRemote(rec models.RemoteRecord) (models.SyncableRecord, error) {
	if rec.ID == "" {
		return models.SyncableRecord{}, ErrMissingRecordID
	}

	c, err := r.Lookup(rec.RecordType)
	if err != nil {
		return models.SyncableRecord{}, fmt.Errorf("decode remote record %s: %w", rec.ID, err)
	}
	if rec.DataType != "" && rec.DataType != c.DataType() {
		return models.SyncableRecord{}, fmt.Errorf("decode remote record %s: %w: got %s, want %s",
			rec.ID, ErrDataTypeMismatch, rec.DataType, c.DataType())
	}
	if !rec.Deleted {
		if err = c.Validate(rec.Payload); err != nil {
			return models.SyncableRecord{}, fmt.Errorf("decode remote record %s: %w", rec.ID, err)
		}
	}

	return models.SyncableRecord{
		ID:           rec.ID,
		RecordType:   rec.RecordType,
		DataType:     c.DataType(),
		Payload:      rec.Payload,
		Version:      rec.Version,
		LastModified: rec.LastModified,
		Deleted:      rec.Deleted,
	}, nil
}

// Merge combines two live versions of the same record through the record
// type's merge function. The result carries the larger of both markers and
// needs to be pushed again only when it differs from remote.
func (r *Registry) Merge(local, remote models.SyncableRecord) (models.SyncableRecord, error) {
	c, err := r.Lookup(remote.RecordType)
	if err != nil {
		return models.SyncableRecord{}, err
	}
	if !c.Mergeable() {
		return models.SyncableRecord{}, fmt.Errorf("%w: %s", ErrNotMergeable, remote.RecordType)
	}

	payload, changed, err := c.Merge(local.Payload, remote.Payload)
	if err != nil {
		return models.SyncableRecord{}, fmt.Errorf("merge record %s: %w", remote.ID, err)
	}

	return models.SyncableRecord{
		ID:           remote.ID,
		RecordType:   remote.RecordType,
		DataType:     c.DataType(),
		Payload:      payload,
		Version:      max(local.Version, remote.Version),
		LastModified: laterOf(local.LastModified, remote.LastModified),
		NeedsSync:    changed,
	}, nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
