// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app assembles the sync engine from configuration and exposes the
// operations used by the command line: the long-running daemon, one-shot
// cycles, and maintenance of cursors and the privacy audit log.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-health-sync/internal/adapter"
	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/handler"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/privacy"
	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/server"
	"github.com/MKhiriev/go-health-sync/internal/service"
	"github.com/MKhiriev/go-health-sync/internal/store"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/internal/workers"
	"github.com/MKhiriev/go-health-sync/models"
)

type App struct {
	cfg      *config.StructuredConfig
	storages *store.Storages
	services *service.Services
	logger   *logger.Logger
}

func NewApp(ctx context.Context, cfg *config.StructuredConfig, log *logger.Logger) (*App, error) {
	storages, err := store.NewStorages(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create storages: %w", err)
	}

	remote, err := adapter.NewRemoteStore(cfg.Remote, cfg.App.DeviceID, log)
	if err != nil {
		storages.Close()
		return nil, fmt.Errorf("create remote store: %w", err)
	}

	return newApp(cfg, storages, remote, log), nil
}

func newApp(cfg *config.StructuredConfig, storages *store.Storages, remote adapter.RemoteStore, log *logger.Logger) *App {
	gate := privacy.NewPolicyGate(cfg.Sync.DeniedSet(), storages.Audit, privacy.NewLogSink(log))
	services := service.NewServices(storages, remote, gate, registry.Default(), cfg.Sync, log)

	return &App{
		cfg:      cfg,
		storages: storages,
		services: services,
		logger:   log,
	}
}

// Run starts the background workers and the trigger API and blocks until ctx
// is cancelled. An initial cycle runs on startup.
func (a *App) Run(ctx context.Context) error {
	var srv server.Server
	handlers, err := handler.NewHandlers(a.services, a.cfg.Server, a.logger)
	switch {
	case errors.Is(err, handler.ErrNoHandlers):
		a.logger.Warn().Msg("trigger API disabled, no server address configured")
	case err != nil:
		return fmt.Errorf("create handlers: %w", err)
	default:
		if srv, err = server.NewServer(handlers, a.cfg.Server, a.logger); err != nil {
			return fmt.Errorf("create server: %w", err)
		}
	}

	go a.services.Engine.RunFullSync(utils.WithTriggerSource(ctx, models.TriggerForeground))

	w := workers.NewWorkers(a.services, a.cfg.Sync.Interval, a.logger)
	w.Run(ctx)
	defer w.Stop()

	if srv == nil {
		<-ctx.Done()
		return nil
	}
	return srv.RunServer(ctx)
}

// SyncOnce runs one full cycle.
func (a *App) SyncOnce(ctx context.Context) models.SyncOutcome {
	return a.services.Engine.RunFullSync(utils.WithTriggerSource(ctx, models.TriggerManual))
}

// Cursor returns the stored cursor of zone, nil when the zone will be
// fetched from the beginning.
func (a *App) Cursor(ctx context.Context, zone string) (*models.Cursor, error) {
	return a.storages.Tokens.Load(ctx, zoneOrDefault(zone))
}

// ResetCursor forgets the cursor of zone so the next cycle refetches it.
func (a *App) ResetCursor(ctx context.Context, zone string) error {
	zone = zoneOrDefault(zone)
	if err := a.storages.Tokens.Clear(ctx, zone); err != nil {
		return fmt.Errorf("clear cursor of zone %s: %w", zone, err)
	}
	a.logger.Info().Str("zone", zone).Msg("cursor reset, zone will be refetched")
	return nil
}

// Audit returns the newest privacy audit entries.
func (a *App) Audit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return a.storages.Audit.Recent(ctx, limit)
}

func (a *App) Records() service.RecordService {
	return a.services.Records
}

func (a *App) Remote() service.RemoteQueryService {
	return a.services.Remote
}

// Close stops the cycle in flight before the stores go away.
func (a *App) Close() error {
	a.services.Engine.Close()
	return a.storages.Close()
}

func zoneOrDefault(zone string) string {
	if zone == "" {
		return models.DefaultZone
	}
	return zone
}
