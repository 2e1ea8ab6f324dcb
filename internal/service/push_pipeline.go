package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/models"
)

const defaultPushConcurrency = 4

type pushPipeline struct {
	records  store.LocalRecordStore
	remote   adapter.RemoteStore
	gate     privacy.Gate
	registry *registry.Registry

	concurrency int
}

func NewPushPipeline(
	records store.LocalRecordStore,
	remote adapter.RemoteStore,
	gate privacy.Gate,
	reg *registry.Registry,
	concurrency int,
) PushPipeline {
	if concurrency <= 0 {
		concurrency = defaultPushConcurrency
	}
	return &pushPipeline{
		records:     records,
		remote:      remote,
		gate:        gate,
		registry:    reg,
		concurrency: concurrency,
	}
}

func (p *pushPipeline) PushAll(ctx context.Context) (models.PushResult, error) {
	var (
		mu    sync.Mutex
		total models.PushResult
		errs  []error
		g     errgroup.Group
	)
	g.SetLimit(p.concurrency)

	for _, rt := range p.registry.Types() {
		g.Go(func() error {
			res, err := p.PushDirty(ctx, rt)

			mu.Lock()
			defer mu.Unlock()
			total.Add(res)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return total, errors.Join(errs...)
}

func (p *pushPipeline) PushDirty(ctx context.Context, recordType models.RecordType) (models.PushResult, error) {
	log := logger.FromContext(ctx).With().
		Str("func", "pushPipeline.PushDirty").
		Str("record_type", string(recordType)).
		Logger()

	var res models.PushResult

	dirty, err := p.records.QueryDirty(ctx, recordType)
	if err != nil {
		return res, fmt.Errorf("query dirty %s records: %w", recordType, err)
	}
	if len(dirty) == 0 {
		return res, nil
	}

	var live, tombstones []models.SyncableRecord
	for _, rec := range dirty {
		entry := models.AuditEntry{DataType: rec.DataType, RecordID: rec.ID, RecordType: rec.RecordType}
		if !p.gate.IsAllowed(ctx, rec.DataType) {
			entry.Action = models.AuditPushDenied
			p.gate.Audit(ctx, entry)
			res.Skipped++
			continue
		}
		entry.Action = models.AuditPushAllowed
		p.gate.Audit(ctx, entry)

		if rec.Deleted {
			tombstones = append(tombstones, rec)
		} else {
			live = append(live, rec)
		}
	}

	if err = ctx.Err(); err != nil {
		res.Failed += len(live) + len(tombstones)
		return res, err
	}

	var errs []error
	if len(live) > 0 {
		if err = p.saveLive(ctx, recordType, live, &res); err != nil {
			errs = append(errs, err)
		}
	}
	if len(tombstones) > 0 {
		if err = p.deleteTombstones(ctx, recordType, tombstones, &res); err != nil {
			errs = append(errs, err)
		}
	}

	log.Debug().
		Int("pushed", res.Pushed).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("push finished")

	return res, errors.Join(errs...)
}

func (p *pushPipeline) saveLive(ctx context.Context, recordType models.RecordType, live []models.SyncableRecord, res *models.PushResult) error {
	batch := make([]models.RemoteRecord, 0, len(live))
	for _, rec := range live {
		batch = append(batch, rec.ToRemote())
	}

	results, err := p.remote.Save(ctx, batch)
	if err != nil {
		res.Failed += len(live)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &AdapterError{Op: "save", Target: string(recordType), Err: err}
	}

	acked := make([]models.RecordRef, 0, len(live))
	for _, rec := range live {
		if err = resultFor(results, rec.ID); err != nil {
			res.Failed++
			logger.FromContext(ctx).Warn().Err(err).
				Str("func", "pushPipeline.saveLive").
				Str("record_id", rec.ID).
				Msg("record rejected by remote store")
			continue
		}
		acked = append(acked, rec.Ref())
	}
	res.Pushed += len(acked)

	if len(acked) == 0 {
		return nil
	}
	if err = p.records.ClearDirty(ctx, acked); err != nil {
		return fmt.Errorf("clear dirty flag on %d %s records: %w", len(acked), recordType, err)
	}
	return nil
}

func (p *pushPipeline) deleteTombstones(ctx context.Context, recordType models.RecordType, dead []models.SyncableRecord, res *models.PushResult) error {
	batch := make([]models.Tombstone, 0, len(dead))
	for _, rec := range dead {
		batch = append(batch, rec.Tombstone())
	}

	results, err := p.remote.Delete(ctx, batch)
	if err != nil {
		res.Failed += len(dead)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &AdapterError{Op: "delete", Target: string(recordType), Err: err}
	}

	var errs []error
	for _, rec := range dead {
		if err = resultFor(results, rec.ID); err != nil {
			res.Failed++
			continue
		}
		res.Pushed++

		if err = p.purgeTombstone(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// purgeTombstone removes an acknowledged tombstone unless the record was
// changed locally after it was queried.
func (p *pushPipeline) purgeTombstone(ctx context.Context, pushed models.SyncableRecord) error {
	current, err := p.records.Get(ctx, pushed.ID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload tombstone %s: %w", pushed.ID, err)
	}
	if !current.Deleted || current.Version != pushed.Version {
		logger.FromContext(ctx).Debug().
			Str("func", "pushPipeline.purgeTombstone").
			Str("record_id", pushed.ID).
			Err(ErrTombstoneMoved).
			Msg("keeping record")
		return nil
	}

	if err = p.records.Delete(ctx, pushed.ID); err != nil {
		return fmt.Errorf("purge tombstone %s: %w", pushed.ID, err)
	}
	return nil
}

func resultFor(results []models.RecordResult, id string) error {
	for _, r := range results {
		if r.ID == id {
			return r.Err
		}
	}
	return fmt.Errorf("%w: %s", ErrMissingResult, id)
}
