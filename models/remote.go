package models

import (
	"encoding/json"
	"time"
)

// RemoteRecord is the shape in which a record travels to and from the remote
// store. The engine decodes it into a SyncableRecord through the type
// registry before anything is applied locally.
type RemoteRecord struct {
	ID           string          `json:"id"`
	RecordType   RecordType      `json:"record_type"`
	DataType     DataType        `json:"data_type,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Version      int64           `json:"version"`
	LastModified time.Time       `json:"last_modified"`
	Deleted      bool            `json:"deleted,omitempty"`
}

// ToRemote converts a local record into its wire form.
func (r SyncableRecord) ToRemote() RemoteRecord {
	return RemoteRecord{
		ID:           r.ID,
		RecordType:   r.RecordType,
		DataType:     r.DataType,
		Payload:      r.Payload,
		Version:      r.Version,
		LastModified: r.LastModified,
		Deleted:      r.Deleted,
	}
}

// RecordResult is the per-record outcome of a remote save or delete.
// A nil Err means the remote store acknowledged the record.
type RecordResult struct {
	ID  string
	Err error
}

// FetchPredicate narrows a remote Fetch.
type FetchPredicate struct {
	IDs           []string   `json:"ids,omitempty"`
	ModifiedSince *time.Time `json:"modified_since,omitempty"`
}

// PushNotification is delivered by a remote subscription when records of a
// type changed in a zone.
type PushNotification struct {
	Zone       string     `json:"zone"`
	RecordType RecordType `json:"record_type"`
	At         time.Time  `json:"at"`
}
