// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/service"
)

// recordingWorker appends its events to a shared journal.
type recordingWorker struct {
	id      string
	journal *[]string
}

func (w *recordingWorker) Run(context.Context) { *w.journal = append(*w.journal, "run "+w.id) }
func (w *recordingWorker) Stop()               { *w.journal = append(*w.journal, "stop "+w.id) }

type fakeSyncJob struct {
	interval time.Duration
	started  int
	stopped  int
}

func (j *fakeSyncJob) Start(_ context.Context, interval time.Duration) {
	j.started++
	j.interval = interval
}
func (j *fakeSyncJob) Stop() { j.stopped++ }

type fakeListener struct {
	service.SubscriptionListener
	started int
	stopped int
}

func (l *fakeListener) Start(context.Context) { l.started++ }
func (l *fakeListener) Stop()                 { l.stopped++ }

func TestWorkers_RunAndStopOrder(t *testing.T) {
	var journal []string
	ws := &Workers{
		workers: []Worker{
			&recordingWorker{id: "1", journal: &journal},
			&recordingWorker{id: "2", journal: &journal},
			&recordingWorker{id: "3", journal: &journal},
		},
		logger: logger.Nop(),
	}

	ws.Run(context.Background())
	ws.Stop()

	assert.Equal(t, []string{"run 1", "run 2", "run 3", "stop 3", "stop 2", "stop 1"}, journal)
}

func TestWorkers_Empty(t *testing.T) {
	ws := &Workers{logger: logger.Nop()}

	assert.NotPanics(t, func() {
		ws.Run(context.Background())
		ws.Stop()
	})
}

func TestNewWorkers_WiresSchedulerAndSubscription(t *testing.T) {
	job := &fakeSyncJob{}
	listener := &fakeListener{}
	services := &service.Services{SyncJob: job, Subscription: listener}

	ws := NewWorkers(services, time.Minute, logger.Nop())
	ws.Run(context.Background())
	ws.Stop()

	assert.Len(t, ws.workers, 2)
	assert.Equal(t, 1, job.started)
	assert.Equal(t, time.Minute, job.interval)
	assert.Equal(t, 1, job.stopped)
	assert.Equal(t, 1, listener.started)
	assert.Equal(t, 1, listener.stopped)
}

func TestNewWorkers_ZeroIntervalDisablesScheduler(t *testing.T) {
	job := &fakeSyncJob{}
	listener := &fakeListener{}
	services := &service.Services{SyncJob: job, Subscription: listener}

	ws := NewWorkers(services, 0, logger.Nop())
	ws.Run(context.Background())

	assert.Len(t, ws.workers, 1)
	assert.Zero(t, job.started)
	assert.Equal(t, 1, listener.started)
}
