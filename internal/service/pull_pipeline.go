package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/models"
)

type pullPipeline struct {
	records  store.LocalRecordStore
	tokens   store.ChangeTokenStore
	remote   adapter.RemoteStore
	gate     privacy.Gate
	registry *registry.Registry
	resolver ConflictResolver

	zones []string
}

func NewPullPipeline(
	records store.LocalRecordStore,
	tokens store.ChangeTokenStore,
	remote adapter.RemoteStore,
	gate privacy.Gate,
	reg *registry.Registry,
	zones []string,
) PullPipeline {
	if len(zones) == 0 {
		zones = []string{models.DefaultZone}
	}
	return &pullPipeline{
		records:  records,
		tokens:   tokens,
		remote:   remote,
		gate:     gate,
		registry: reg,
		resolver: NewConflictResolver(reg),
		zones:    zones,
	}
}

// PullRemoteChanges pulls the zones one after another. A failing zone does
// not stop the next one; cancellation does.
func (p *pullPipeline) PullRemoteChanges(ctx context.Context) (models.PullResult, error) {
	var (
		total models.PullResult
		errs  []error
	)

	for _, zone := range p.zones {
		res, err := p.pullZone(ctx, zone)
		total.Add(res)
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	return total, errors.Join(errs...)
}

// zoneRun carries the state of one zone fetch between handler callbacks.
type zoneRun struct {
	zone string
	res  models.PullResult
	// held is set when a local write failed; the cursor must not move past
	// a change that was not applied.
	held bool
}

func (z *zoneRun) recordError(err error) {
	z.res.RecordErrors = append(z.res.RecordErrors, err)
}

func (z *zoneRun) localFailure(err error) {
	z.held = true
	z.recordError(err)
}

func (p *pullPipeline) pullZone(ctx context.Context, zone string) (models.PullResult, error) {
	log := logger.FromContext(ctx).With().
		Str("func", "pullPipeline.pullZone").
		Str("zone", zone).
		Logger()

	run := &zoneRun{zone: zone}

	cursor, err := p.tokens.Load(ctx, zone)
	if err != nil {
		return run.res, &CursorPersistenceError{Zone: zone, Err: err}
	}

	next, err := p.remote.FetchChanges(ctx, zone, cursor, adapter.ChangeHandler{
		OnRecord: func(rr models.RemoteRecord) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.applyRecord(ctx, run, rr)
			return nil
		},
		OnDeletion: func(t models.Tombstone) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.applyDeletion(ctx, run, t)
			return nil
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return run.res, ctxErr
		}
		if errors.Is(err, adapter.ErrCursorExpired) && cursor != nil {
			if clearErr := p.tokens.Clear(ctx, zone); clearErr != nil {
				return run.res, errors.Join(
					&AdapterError{Op: "fetch_changes", Target: zone, Err: err},
					&CursorPersistenceError{Zone: zone, Err: clearErr},
				)
			}
			log.Warn().Msg("remote cursor expired, zone will be fetched from scratch next cycle")
		}
		return run.res, &AdapterError{Op: "fetch_changes", Target: zone, Err: err}
	}

	if run.held {
		log.Warn().
			Int("record_errors", len(run.res.RecordErrors)).
			Msg("local store rejected changes, cursor kept for retry")
		return run.res, nil
	}

	if err = ctx.Err(); err != nil {
		return run.res, err
	}

	next.Zone = zone
	if err = p.tokens.Save(ctx, next); err != nil {
		return run.res, &CursorPersistenceError{Zone: zone, Err: err}
	}

	log.Debug().
		Int("applied", run.res.Applied).
		Int("deleted", run.res.Deleted).
		Int("skipped", run.res.Skipped).
		Int("conflicts", run.res.Conflicts.Total()).
		Msg("zone pulled")

	return run.res, nil
}

func (p *pullPipeline) applyRecord(ctx context.Context, run *zoneRun, rr models.RemoteRecord) {
	remote, err := p.registry.DecodeRemote(rr)
	if err != nil {
		run.res.Skipped++
		run.recordError(err)
		p.gate.Audit(ctx, models.AuditEntry{
			Action:     models.AuditSkipped,
			DataType:   rr.DataType,
			RecordID:   rr.ID,
			RecordType: rr.RecordType,
			Details:    "undecodable: " + err.Error(),
		})
		return
	}

	if !p.admit(ctx, run, remote) {
		return
	}

	local, err := p.records.Get(ctx, remote.ID)
	if errors.Is(err, store.ErrRecordNotFound) {
		if remote.Deleted {
			p.audit(ctx, models.AuditSkipped, remote, "deleted record not present locally")
			return
		}
		p.upsertRemote(ctx, run, remote)
		return
	}
	if err != nil {
		run.localFailure(fmt.Errorf("load local record %s: %w", remote.ID, err))
		return
	}

	p.reconcile(ctx, run, local, remote)
}

// applyDeletion resolves a deletion notice against the local record. A
// notice without markers cannot be ordered against the local version: it
// wins over a clean record and loses to an unpushed local edit, which stays
// dirty so it is pushed again.
func (p *pullPipeline) applyDeletion(ctx context.Context, run *zoneRun, t models.Tombstone) {
	local, err := p.records.Get(ctx, t.ID)
	if errors.Is(err, store.ErrRecordNotFound) {
		p.gate.Audit(ctx, models.AuditEntry{
			Action:     models.AuditSkipped,
			RecordID:   t.ID,
			RecordType: t.RecordType,
			Details:    "deleted record not present locally",
		})
		return
	}
	if err != nil {
		run.localFailure(fmt.Errorf("load local record %s: %w", t.ID, err))
		return
	}

	remote := models.SyncableRecord{
		ID:           t.ID,
		RecordType:   local.RecordType,
		DataType:     local.DataType,
		Version:      t.Version,
		LastModified: t.DeletedAt,
		Deleted:      true,
	}
	if remote.RecordType == "" {
		remote.RecordType = t.RecordType
	}
	if remote.DataType == "" {
		codec, lookupErr := p.registry.Lookup(remote.RecordType)
		if lookupErr != nil {
			run.res.Skipped++
			run.recordError(fmt.Errorf("deletion of %s: %w", t.ID, lookupErr))
			p.audit(ctx, models.AuditSkipped, remote, "undecodable: "+lookupErr.Error())
			return
		}
		remote.DataType = codec.DataType()
	}
	markerless := remote.Version == 0 && remote.LastModified.IsZero()
	if remote.Version == 0 {
		remote.Version = local.Version
	}
	if remote.LastModified.IsZero() {
		remote.LastModified = local.LastModified
	}

	if !p.admit(ctx, run, remote) {
		return
	}

	if markerless && local.NeedsSync && !local.Deleted {
		run.res.Conflicts.Add(models.UseLocal)
		p.keepLocal(ctx, run, local, "unpushed local edit outlives an unversioned deletion")
		return
	}

	p.reconcile(ctx, run, local, remote)
}

// admit asks the privacy gate whether remote may enter the local store.
func (p *pullPipeline) admit(ctx context.Context, run *zoneRun, remote models.SyncableRecord) bool {
	entry := models.AuditEntry{DataType: remote.DataType, RecordID: remote.ID, RecordType: remote.RecordType}
	if !p.gate.IsAllowed(ctx, remote.DataType) {
		entry.Action = models.AuditPullDenied
		p.gate.Audit(ctx, entry)
		run.res.Skipped++
		return false
	}
	entry.Action = models.AuditPullAllowed
	p.gate.Audit(ctx, entry)
	return true
}

func (p *pullPipeline) reconcile(ctx context.Context, run *zoneRun, local, remote models.SyncableRecord) {
	if sameVersion(local, remote) {
		return
	}

	decision := p.resolver.Resolve(local, remote)
	run.res.Conflicts.Add(decision)

	switch decision {
	case models.UseLocal:
		p.keepLocal(ctx, run, local, "local version is newer")
	case models.Merge:
		merged, err := p.registry.Merge(local, remote)
		if err != nil {
			run.res.MergeFailures++
			run.recordError(&ConflictResolutionError{RecordID: remote.ID, Err: err})
			p.applyRemote(ctx, run, remote)
			return
		}
		if err = p.records.Upsert(ctx, merged); err != nil {
			run.localFailure(fmt.Errorf("store merged record %s: %w", merged.ID, err))
			return
		}
		run.res.Applied++
		p.audit(ctx, models.AuditApplied, merged, "merged")
	default:
		p.applyRemote(ctx, run, remote)
	}
}

// keepLocal makes sure the newer local version is pushed next cycle.
func (p *pullPipeline) keepLocal(ctx context.Context, run *zoneRun, local models.SyncableRecord, reason string) {
	p.audit(ctx, models.AuditSkipped, local, reason)
	if local.NeedsSync {
		return
	}
	if err := p.records.MarkDirty(ctx, local.ID); err != nil {
		run.localFailure(fmt.Errorf("mark record %s dirty: %w", local.ID, err))
	}
}

func (p *pullPipeline) applyRemote(ctx context.Context, run *zoneRun, remote models.SyncableRecord) {
	if !remote.Deleted {
		p.upsertRemote(ctx, run, remote)
		return
	}

	if err := p.records.Delete(ctx, remote.ID); err != nil {
		run.localFailure(fmt.Errorf("delete record %s: %w", remote.ID, err))
		return
	}
	run.res.Deleted++
	p.audit(ctx, models.AuditDeleted, remote, "")
}

func (p *pullPipeline) upsertRemote(ctx context.Context, run *zoneRun, remote models.SyncableRecord) {
	remote.NeedsSync = false
	if err := p.records.Upsert(ctx, remote); err != nil {
		run.localFailure(fmt.Errorf("store remote record %s: %w", remote.ID, err))
		return
	}
	run.res.Applied++
	p.audit(ctx, models.AuditApplied, remote, "")
}

func (p *pullPipeline) audit(ctx context.Context, action models.AuditAction, rec models.SyncableRecord, details string) {
	p.gate.Audit(ctx, models.AuditEntry{
		Action:     action,
		DataType:   rec.DataType,
		RecordID:   rec.ID,
		RecordType: rec.RecordType,
		Details:    details,
	})
}

// sameVersion reports whether both sides already hold the same record, in
// which case pulling it again changes nothing.
func sameVersion(local, remote models.SyncableRecord) bool {
	if local.Version != remote.Version ||
		!local.LastModified.Equal(remote.LastModified) ||
		local.Deleted != remote.Deleted {
		return false
	}
	return local.Deleted || bytes.Equal(local.Payload, remote.Payload)
}
