// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordType names a concrete record shape handled by the sync engine
// (e.g. health entries, sleep sessions). It selects the codec used to decode
// and merge the record payload.
type RecordType string

const (
	RecordTypeHealthEntry     RecordType = "health_entry"
	RecordTypeSleepSession    RecordType = "sleep_session"
	RecordTypeMoodLog         RecordType = "mood_log"
	RecordTypeMLModelMetadata RecordType = "ml_model_metadata"
	RecordTypeExportRequest   RecordType = "export_request"
)

// DataType is the privacy classification of a record. It is used only to ask
// the privacy gate whether the record may leave (or enter) the device; it is
// not a subtype of the record itself.
type DataType string

const (
	DataTypeBiometric DataType = "biometric"
	DataTypeSleep     DataType = "sleep"
	DataTypeMood      DataType = "mood"
	DataTypeModel     DataType = "model"
	DataTypeExport    DataType = "export"
	DataTypeCustom    DataType = "custom"
)

var knownDataTypes = map[DataType]struct{}{
	DataTypeBiometric: {},
	DataTypeSleep:     {},
	DataTypeMood:      {},
	DataTypeModel:     {},
	DataTypeExport:    {},
	DataTypeCustom:    {},
}

// ParseDataType converts s into a known DataType.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if _, ok := knownDataTypes[dt]; !ok {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return dt, nil
}

// SyncableRecord is the unit of synchronization.
//
// Version and LastModified are the markers compared by the conflict
// resolver; the owning feature module bumps both on every local mutation and
// sets NeedsSync. Deleted turns the record into a tombstone: a deletion that
// keeps its own version so it can be compared with concurrent updates.
type SyncableRecord struct {
	// ID is a UUID assigned at local creation, stable across devices.
	ID string `json:"id"`

	// RecordType selects the payload codec.
	RecordType RecordType `json:"record_type"`

	// DataType is the privacy classification of the record.
	DataType DataType `json:"data_type"`

	// Payload holds the type-specific fields, opaque to the engine.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Version is a monotonic counter bumped on every local mutation.
	Version int64 `json:"version"`

	// LastModified is the wall-clock time of the last mutation.
	LastModified time.Time `json:"last_modified"`

	// Deleted marks the record as a tombstone.
	Deleted bool `json:"deleted"`

	// NeedsSync is the dirty flag. Only the push pipeline clears it.
	NeedsSync bool `json:"needs_sync"`
}

// Ref returns the (id, version) pair acknowledged by a successful push.
func (r SyncableRecord) Ref() RecordRef {
	return RecordRef{ID: r.ID, Version: r.Version}
}

// Tombstone converts a deleted record into the deletion notice sent to the
// remote store.
func (r SyncableRecord) Tombstone() Tombstone {
	return Tombstone{
		ID:         r.ID,
		RecordType: r.RecordType,
		Version:    r.Version,
		DeletedAt:  r.LastModified,
	}
}

// RecordRef identifies one version of a record.
type RecordRef struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// Tombstone is a deletion notice. Version and DeletedAt may be zero when the
// remote store only knows that the record is gone.
type Tombstone struct {
	ID         string     `json:"id"`
	RecordType RecordType `json:"record_type"`
	Version    int64      `json:"version,omitempty"`
	DeletedAt  time.Time  `json:"deleted_at,omitempty"`
}

// NewRecordID returns a fresh record identifier. Time-ordered UUIDv7 values
// are preferred; a random UUIDv4 is used if v7 generation fails.
func NewRecordID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
