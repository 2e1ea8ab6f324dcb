package server

import "context"

// Server defines the lifecycle contract of the trigger API server.
type Server interface {
	// RunServer starts serving requests and blocks until ctx is cancelled
	// or the listener fails. A graceful shutdown returns nil.
	RunServer(ctx context.Context) error

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}
