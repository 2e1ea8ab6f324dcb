// Package server runs the local trigger API.
//
// It owns the HTTP listener lifecycle: startup, and graceful shutdown once
// the run context is cancelled.
package server
