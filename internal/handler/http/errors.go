// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

var (
	// ErrUnknownLifecycleEvent is returned for lifecycle events other than
	// foreground and background.
	ErrUnknownLifecycleEvent = errors.New("unknown lifecycle event")

	// ErrInvalidRequestBody is returned when a JSON request body cannot be
	// decoded.
	ErrInvalidRequestBody = errors.New("invalid request body")

	// ErrUnknownDataType is returned when a consent change names a data
	// type the registry does not know.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrInvalidQuery is returned for a malformed query parameter.
	ErrInvalidQuery = errors.New("invalid query")
)
