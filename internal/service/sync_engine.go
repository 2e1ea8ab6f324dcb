// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

const fullSyncKey = "full-sync"

type syncEngine struct {
	push   PushPipeline
	pull   PullPipeline
	status *StatusBroadcaster

	flight singleflight.Group

	// life bounds every cycle; Close cancels it. Callers' contexts only
	// bound their own wait.
	life   context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	closed bool
	cycles sync.WaitGroup

	ids    utils.IDGenerator
	now    func() time.Time
	logger *logger.Logger
}

func NewSyncEngine(push PushPipeline, pull PullPipeline, status *StatusBroadcaster, log *logger.Logger) SyncEngine {
	life, stop := context.WithCancel(context.Background())
	return &syncEngine{
		life:   life,
		stop:   stop,
		push:   push,
		pull:   pull,
		status: status,
		ids:    utils.NewUUIDGenerator(),
		now:    time.Now,
		logger: log,
	}
}

// RunFullSync joins the cycle in flight or starts a new one. The cycle keeps
// the values of the starting ctx (trigger source, logger) but not its
// cancellation: it ends only on completion or Close. A caller whose ctx ends
// while waiting returns early with ctx's error.
func (e *syncEngine) RunFullSync(ctx context.Context) models.SyncOutcome {
	ch := e.flight.DoChan(fullSyncKey, func() (any, error) {
		return e.detachedCycle(ctx), nil
	})

	select {
	case r := <-ch:
		return r.Val.(models.SyncOutcome)
	case <-ctx.Done():
		return models.SyncOutcome{Err: ctx.Err()}
	}
}

func (e *syncEngine) detachedCycle(ctx context.Context) models.SyncOutcome {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return models.SyncOutcome{Err: ErrEngineClosed}
	}
	e.cycles.Add(1)
	e.mu.Unlock()
	defer e.cycles.Done()

	cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	defer context.AfterFunc(e.life, cancel)()

	return e.runCycle(cycleCtx)
}

// Close cancels the running cycle, waits for it, and refuses new ones.
func (e *syncEngine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.stop()
	e.cycles.Wait()
}

func (e *syncEngine) Status() models.SyncStatus {
	return e.status.Current()
}

func (e *syncEngine) SubscribeStatus(ctx context.Context) <-chan models.SyncStatus {
	return e.status.Subscribe(ctx)
}

func (e *syncEngine) runCycle(ctx context.Context) (out models.SyncOutcome) {
	out.CycleID = e.ids.Generate()
	out.StartedAt = e.now()

	ctx, log := e.logger.WithField(ctx, "cycle_id", out.CycleID)
	source, ok := utils.GetTriggerSourceFromContext(ctx)
	if !ok {
		source = models.TriggerManual
	}

	log.Info().
		Str("func", "syncEngine.runCycle").
		Str("trigger", string(source)).
		Msg("sync cycle started")
	e.status.Publish(models.SyncStatus{State: models.StateSyncing})

	defer func() {
		if r := recover(); r != nil {
			out.Err = errors.Join(out.Err, fmt.Errorf("%w: %v", ErrSyncPanicked, r))
		}
		out.FinishedAt = e.now()
		e.finish(log, out)
	}()

	out.Push, out.PushErr = e.push.PushAll(ctx)
	out.Pull, out.PullErr = e.pull.PullRemoteChanges(ctx)
	out.Err = errors.Join(out.PushErr, out.PullErr)

	return out
}

func (e *syncEngine) finish(log *logger.Logger, out models.SyncOutcome) {
	event := log.Info()
	status := models.SyncStatus{State: models.StateIdle}
	if out.Err != nil {
		status = models.SyncStatus{
			State:      models.StateError,
			ErrorClass: Classify(out.Err),
			LastError:  out.Err.Error(),
		}
		event = log.Warn().Err(out.Err).Str("error_class", string(status.ErrorClass))
	}

	event.
		Str("func", "syncEngine.finish").
		Int("pushed", out.Push.Pushed).
		Int("push_failed", out.Push.Failed).
		Int("push_skipped", out.Push.Skipped).
		Int("applied", out.Pull.Applied).
		Int("deleted", out.Pull.Deleted).
		Int("pull_skipped", out.Pull.Skipped).
		Int("conflicts", out.Pull.Conflicts.Total()).
		Int("merge_failures", out.Pull.MergeFailures).
		Int("record_errors", len(out.Pull.RecordErrors)).
		Dur("took", out.FinishedAt.Sub(out.StartedAt)).
		Msg("sync cycle finished")

	e.status.Publish(status)
}
