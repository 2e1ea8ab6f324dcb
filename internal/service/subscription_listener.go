package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

const defaultResubscribeDelay = 10 * time.Second

type subscriptionListener struct {
	engine SyncEngine
	remote adapter.RemoteStore
	types  []models.RecordType
	retry  time.Duration
	logger *logger.Logger

	// pending coalesces notifications: any number of them arriving during a
	// cycle cause exactly one follow-up cycle.
	pending chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSubscriptionListener(engine SyncEngine, remote adapter.RemoteStore, types []models.RecordType, log *logger.Logger) SubscriptionListener {
	return &subscriptionListener{
		engine:  engine,
		remote:  remote,
		types:   types,
		retry:   defaultResubscribeDelay,
		logger:  log,
		pending: make(chan struct{}, 1),
	}
}

func (l *subscriptionListener) Start(ctx context.Context) {
	l.Stop()

	l.mu.Lock()
	runCtx, cancel := context.WithCancel(utils.WithTriggerSource(ctx, models.TriggerRemotePush))
	l.cancel = cancel
	l.wg.Add(len(l.types) + 1)
	l.mu.Unlock()

	for _, rt := range l.types {
		go l.watch(runCtx, rt)
	}
	go l.drain(runCtx)
}

func (l *subscriptionListener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

func (l *subscriptionListener) Notify(n models.PushNotification) {
	l.logger.Debug().
		Str("func", "subscriptionListener.Notify").
		Str("zone", n.Zone).
		Str("record_type", string(n.RecordType)).
		Msg("remote change notification")

	select {
	case l.pending <- struct{}{}:
	default:
	}
}

// watch keeps a subscription for rt open until ctx is done, subscribing
// again after retry whenever the remote store drops it.
func (l *subscriptionListener) watch(ctx context.Context, rt models.RecordType) {
	defer l.wg.Done()

	for {
		ch, err := l.remote.Subscribe(ctx, rt)
		if err != nil {
			l.logger.Warn().Err(err).
				Str("func", "subscriptionListener.watch").
				Str("record_type", string(rt)).
				Msg("subscribe failed")
		} else {
			for n := range ch {
				l.Notify(n)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *subscriptionListener) drain(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.pending:
			_ = l.engine.RunFullSync(ctx)
		}
	}
}
