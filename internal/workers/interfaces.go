// Package workers runs the background triggers of the sync engine: the
// periodic scheduler and the remote change subscription.
//
// A Workers aggregate starts and stops all of them together, so the
// application only manages one lifecycle.
package workers

import "context"

// Worker is a background trigger.
//
// Run must not block: implementations spawn their own goroutines and keep
// them alive until ctx is cancelled or Stop is called. Stop blocks until
// those goroutines have exited.
type Worker interface {
	Run(ctx context.Context)
	Stop()
}
