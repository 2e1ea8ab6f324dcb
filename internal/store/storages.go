// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
)

// Storages groups the local repositories used by the sync engine.
type Storages struct {
	Records LocalRecordStore
	Tokens  ChangeTokenStore
	Audit   AuditLogRepository

	db *DB
}

// NewStorages initialises the local storage layer. The ":memory:" DSN
// selects in-process stores; any other DSN opens SQLite and runs pending
// migrations.
func NewStorages(ctx context.Context, cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Str("dsn", cfg.DB.DSN).Msg("creating new storages...")

	if cfg.DB.DSN == config.MemoryDSN {
		return &Storages{
			Records: NewMemoryRecordStore(),
			Tokens:  NewMemoryChangeTokenStore(),
			Audit:   NewMemoryAuditLog(),
		}, nil
	}

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Records: NewRecordRepository(db, logger),
		Tokens:  NewChangeTokenRepository(db, logger),
		Audit:   NewAuditRepository(db, logger),
		db:      db,
	}, nil
}

// Close releases the database connection, if any.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
