package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-health-sync/models"
)

var (
	ErrSyncPanicked   = errors.New("sync cycle panicked")
	ErrMissingResult  = errors.New("remote store returned no result for record")
	ErrTombstoneMoved = errors.New("tombstone changed locally after push")
	ErrDataTypeDenied = errors.New("data type is denied on this device")

	// ErrEngineClosed is a cancellation: the engine was closed before the
	// cycle could start.
	ErrEngineClosed = fmt.Errorf("sync engine closed: %w", context.Canceled)
)

// AdapterError is returned when a remote store call failed as a whole.
type AdapterError struct {
	// Op is the remote operation, e.g. "save" or "fetch_changes".
	Op string
	// Target is the record type or zone the call was made for.
	Target string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// ConflictResolutionError records a merge that failed. The record was
// resolved with the remote version instead.
type ConflictResolutionError struct {
	RecordID string
	Err      error
}

func (e *ConflictResolutionError) Error() string {
	return fmt.Sprintf("resolve conflict for record %s: %v", e.RecordID, e.Err)
}

func (e *ConflictResolutionError) Unwrap() error { return e.Err }

// CursorPersistenceError means the change token of a zone could not be read
// or written. The zone is fetched again from its last committed cursor.
type CursorPersistenceError struct {
	Zone string
	Err  error
}

func (e *CursorPersistenceError) Error() string {
	return fmt.Sprintf("persist cursor for zone %s: %v", e.Zone, e.Err)
}

func (e *CursorPersistenceError) Unwrap() error { return e.Err }

// Classify maps err to the class shown by status indicators. Joined errors
// are classified by the first matching class in the order cancelled, cursor,
// adapter, conflict.
func Classify(err error) models.ErrorClass {
	var (
		cursorErr   *CursorPersistenceError
		adapterErr  *AdapterError
		conflictErr *ConflictResolutionError
	)

	switch {
	case err == nil:
		return models.ErrorClassNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.ErrorClassCancelled
	case errors.As(err, &cursorErr):
		return models.ErrorClassCursor
	case errors.As(err, &adapterErr):
		return models.ErrorClassAdapter
	case errors.As(err, &conflictErr):
		return models.ErrorClassConflict
	default:
		return models.ErrorClassUnknown
	}
}
