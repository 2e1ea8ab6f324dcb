package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/service"
)

type Workers struct {
	workers []Worker
	logger  *logger.Logger
}

// NewWorkers builds the scheduler and subscription workers over services.
// A non-positive interval disables the scheduler.
func NewWorkers(services *service.Services, interval time.Duration, logger *logger.Logger) *Workers {
	w := &Workers{logger: logger}
	if interval > 0 {
		w.workers = append(w.workers, &syncJobWorker{job: services.SyncJob, interval: interval})
	}
	w.workers = append(w.workers, &subscriptionWorker{listener: services.Subscription})
	return w
}

func (w *Workers) Run(ctx context.Context) {
	w.logger.Info().Int("workers", len(w.workers)).Msg("starting workers")
	for _, worker := range w.workers {
		worker.Run(ctx)
	}
}

// Stop stops the workers in reverse start order.
func (w *Workers) Stop() {
	for i := len(w.workers) - 1; i >= 0; i-- {
		w.workers[i].Stop()
	}
	w.logger.Info().Msg("workers stopped")
}

type syncJobWorker struct {
	job      service.SyncJob
	interval time.Duration
}

func (w *syncJobWorker) Run(ctx context.Context) { w.job.Start(ctx, w.interval) }
func (w *syncJobWorker) Stop()                   { w.job.Stop() }

type subscriptionWorker struct {
	listener service.SubscriptionListener
}

func (w *subscriptionWorker) Run(ctx context.Context) { w.listener.Start(ctx) }
func (w *subscriptionWorker) Stop()                   { w.listener.Stop() }
