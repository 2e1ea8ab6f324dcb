// Package service implements the sync engine: the conflict resolver, the
// push and pull pipelines, the coordinator that runs them as one cycle, and
// the background triggers that start cycles.
package service

import (
	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/store"
)

type Services struct {
	Records      RecordService
	Consent      ConsentService
	Remote       RemoteQueryService
	Push         PushPipeline
	Pull         PullPipeline
	Engine       SyncEngine
	Status       *StatusBroadcaster
	SyncJob      SyncJob
	Subscription SubscriptionListener
}

func NewServices(
	storages *store.Storages,
	remote adapter.RemoteStore,
	gate *privacy.PolicyGate,
	reg *registry.Registry,
	cfg config.Sync,
	log *logger.Logger,
) *Services {
	push := NewPushPipeline(storages.Records, remote, gate, reg, cfg.PushConcurrency)
	pull := NewPullPipeline(storages.Records, storages.Tokens, remote, gate, reg, cfg.Zones)
	status := NewStatusBroadcaster()
	engine := NewSyncEngine(push, pull, status, log)

	return &Services{
		Records:      NewRecordService(storages.Records, reg),
		Consent:      NewConsentService(gate, storages.Tokens, cfg.Zones),
		Remote:       NewRemoteQueryService(remote, gate, reg),
		Push:         push,
		Pull:         pull,
		Engine:       engine,
		Status:       status,
		SyncJob:      NewSyncJob(engine),
		Subscription: NewSubscriptionListener(engine, remote, reg.Types(), log),
	}
}
