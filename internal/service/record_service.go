package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/models"
)

type recordService struct {
	records  store.LocalRecordStore
	registry *registry.Registry
	now      func() time.Time
}

func NewRecordService(records store.LocalRecordStore, reg *registry.Registry) RecordService {
	return &recordService{records: records, registry: reg, now: time.Now}
}

func (s *recordService) Put(ctx context.Context, record models.SyncableRecord) (models.SyncableRecord, error) {
	codec, err := s.registry.Lookup(record.RecordType)
	if err != nil {
		return models.SyncableRecord{}, err
	}
	if err = codec.Validate(record.Payload); err != nil {
		return models.SyncableRecord{}, err
	}

	if record.ID == "" {
		record.ID = models.NewRecordID()
	}
	record.DataType = codec.DataType()
	record.Version = 1

	existing, err := s.records.Get(ctx, record.ID)
	switch {
	case err == nil:
		if existing.RecordType != record.RecordType {
			return models.SyncableRecord{}, fmt.Errorf("%w: record %s is a %s", store.ErrDataTypeMismatch, record.ID, existing.RecordType)
		}
		record.Version = existing.Version + 1
	case !errors.Is(err, store.ErrRecordNotFound):
		return models.SyncableRecord{}, fmt.Errorf("load record %s: %w", record.ID, err)
	}

	record.LastModified = s.now().UTC()
	record.Deleted = false
	record.NeedsSync = true

	if err = s.records.Upsert(ctx, record); err != nil {
		return models.SyncableRecord{}, fmt.Errorf("store record %s: %w", record.ID, err)
	}

	logger.FromContext(ctx).Debug().
		Str("func", "recordService.Put").
		Str("record_id", record.ID).
		Int64("version", record.Version).
		Msg("record stored")

	return record, nil
}

func (s *recordService) Remove(ctx context.Context, id string) error {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return nil
	}

	rec.Version++
	rec.LastModified = s.now().UTC()
	rec.Deleted = true
	rec.Payload = nil
	rec.NeedsSync = true

	if err = s.records.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("store tombstone %s: %w", id, err)
	}
	return nil
}

func (s *recordService) Get(ctx context.Context, id string) (models.SyncableRecord, error) {
	return s.records.Get(ctx, id)
}
