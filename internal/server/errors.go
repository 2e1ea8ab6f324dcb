// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

var (
	// errNoServersAreCreated is returned when the trigger API is disabled,
	// i.e. no HTTP handler or address is configured.
	errNoServersAreCreated = errors.New("no servers are created")

	// errListen wraps a failure to bind the trigger API address.
	errListen = errors.New("trigger API cannot listen")

	// errServerStopped wraps a serve loop that ended on its own.
	errServerStopped = errors.New("trigger API stopped")
)
