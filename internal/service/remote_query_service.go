package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/models"
)

type remoteQueryService struct {
	remote   adapter.RemoteStore
	gate     privacy.Gate
	registry *registry.Registry
}

func NewRemoteQueryService(remote adapter.RemoteStore, gate privacy.Gate, reg *registry.Registry) RemoteQueryService {
	return &remoteQueryService{remote: remote, gate: gate, registry: reg}
}

// List reads records of recordType straight from the remote store without
// touching local state. Records that fail to decode are left out.
func (s *remoteQueryService) List(ctx context.Context, recordType models.RecordType, pred models.FetchPredicate) ([]models.SyncableRecord, error) {
	codec, err := s.registry.Lookup(recordType)
	if err != nil {
		return nil, err
	}
	if !s.gate.IsAllowed(ctx, codec.DataType()) {
		return nil, fmt.Errorf("%w: %s", ErrDataTypeDenied, codec.DataType())
	}

	fetched, err := s.remote.Fetch(ctx, recordType, pred)
	if err != nil {
		return nil, &AdapterError{Op: "fetch", Target: string(recordType), Err: err}
	}

	out := make([]models.SyncableRecord, 0, len(fetched))
	for _, rr := range fetched {
		rec, err := s.registry.DecodeRemote(rr)
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).
				Str("func", "remoteQueryService.List").
				Str("record_id", rr.ID).
				Msg("skipping undecodable remote record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
