package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-sync/models"
)

// StatusBroadcaster holds the current engine status and fans it out to
// subscribers. Every subscriber channel has a buffer of one and always
// holds the newest status; older undelivered values are dropped.
type StatusBroadcaster struct {
	mu      sync.Mutex
	current models.SyncStatus
	subs    map[chan models.SyncStatus]struct{}
	now     func() time.Time
}

func NewStatusBroadcaster() *StatusBroadcaster {
	b := &StatusBroadcaster{
		subs: make(map[chan models.SyncStatus]struct{}),
		now:  time.Now,
	}
	b.current = models.SyncStatus{State: models.StateIdle, At: b.now()}
	return b
}

func (b *StatusBroadcaster) Current() models.SyncStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Publish replaces the current status and notifies every subscriber.
func (b *StatusBroadcaster) Publish(status models.SyncStatus) {
	if status.At.IsZero() {
		status.At = b.now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = status
	for ch := range b.subs {
		offerLatest(ch, status)
	}
}

// Subscribe returns a channel primed with the current status.
func (b *StatusBroadcaster) Subscribe(ctx context.Context) <-chan models.SyncStatus {
	ch := make(chan models.SyncStatus, 1)

	b.mu.Lock()
	ch <- b.current
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// offerLatest must be called with the broadcaster locked: being the only
// sender guarantees the final send finds room.
func offerLatest(ch chan models.SyncStatus, status models.SyncStatus) {
	select {
	case ch <- status:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	ch <- status
}
