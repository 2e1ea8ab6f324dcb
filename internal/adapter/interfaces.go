// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the client side of the remote record store.
//
// The primary abstraction is [RemoteStore], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP implementation
// ([NewHTTPRemoteStore]) built on resty and an in-process implementation
// ([MemoryRemoteStore]) used for development and tests.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-health-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_store_mock.go -package=mock

// ChangeHandler receives the entries of an incremental fetch one at a time.
// Returning an error from a callback aborts the fetch; FetchChanges then
// returns that error and no new cursor.
type ChangeHandler struct {
	OnRecord   func(record models.RemoteRecord) error
	OnDeletion func(tombstone models.Tombstone) error
}

// RemoteStore is the shared store every device of an account syncs with.
// Implementations own timeouts and transport errors; callers treat every
// returned error the same way.
type RemoteStore interface {
	// Save upserts records by id and reports a result per record. A returned
	// error means the batch as a whole failed.
	Save(ctx context.Context, records []models.RemoteRecord) ([]models.RecordResult, error)

	// Fetch returns the current remote state of records of recordType
	// matching pred.
	Fetch(ctx context.Context, recordType models.RecordType, pred models.FetchPredicate) ([]models.RemoteRecord, error)

	// Delete stores tombstones and reports a result per tombstone.
	Delete(ctx context.Context, tombstones []models.Tombstone) ([]models.RecordResult, error)

	// FetchChanges streams every change in zone after cursor (nil means from
	// the beginning) through h. The returned cursor is valid only when err is
	// nil, i.e. the store confirmed that the zone was delivered completely.
	FetchChanges(ctx context.Context, zone string, cursor *models.Cursor, h ChangeHandler) (models.Cursor, error)

	// Subscribe delivers a notification whenever records of recordType change
	// remotely. The channel is closed when ctx is done or the subscription
	// breaks.
	Subscribe(ctx context.Context, recordType models.RecordType) (<-chan models.PushNotification, error)
}
