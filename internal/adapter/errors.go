package adapter

import "errors"

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("version conflict")
	ErrBadGateway          = errors.New("bad gateway")
	ErrInternalServerError = errors.New("internal server error")

	// ErrCursorExpired is returned by FetchChanges when the store no longer
	// accepts the given cursor; the zone has to be fetched from scratch.
	ErrCursorExpired = errors.New("change cursor expired")

	// ErrStreamIncomplete is returned when a change stream ends without a
	// completion frame.
	ErrStreamIncomplete = errors.New("change stream ended before completion")

	// ErrRecordRejected wraps a per-record rejection reported by the store.
	ErrRecordRejected = errors.New("record rejected by remote store")

	ErrInvalidToken = errors.New("invalid auth token")
)
