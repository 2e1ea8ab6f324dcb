// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import "errors"

// errNoHandlersAreCreated is returned by NewHandlers when the server
// configuration carries no HTTP address. The trigger API is then disabled and
// the caller decides whether to run without it.
var errNoHandlersAreCreated = errors.New("no handlers are created")

// ErrNoHandlers reports the disabled trigger API to callers outside the
// package.
var ErrNoHandlers = errNoHandlersAreCreated
