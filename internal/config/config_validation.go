// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/MKhiriev/go-health-sync/models"
)

// validate checks that the final merged [StructuredConfig] satisfies all
// invariants before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.DeviceID == "" {
		return fmt.Errorf("%w: device id is empty", ErrInvalidAppConfigs)
	}

	if cfg.Storage.DB.DSN == "" {
		return fmt.Errorf("%w: dsn is empty", ErrInvalidStorageConfigs)
	}

	if cfg.Remote.Address == "" || cfg.Remote.RequestTimeout <= 0 {
		return fmt.Errorf("%w: address and request timeout are required", ErrInvalidRemoteConfigs)
	}

	if cfg.Sync.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidSyncConfigs)
	}
	if len(cfg.Sync.Zones) == 0 {
		return fmt.Errorf("%w: at least one zone is required", ErrInvalidSyncConfigs)
	}
	if cfg.Sync.PushConcurrency < 1 {
		return fmt.Errorf("%w: push concurrency must be at least 1", ErrInvalidSyncConfigs)
	}
	for _, name := range cfg.Sync.DeniedDataTypes {
		if _, err := models.ParseDataType(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err)
		}
	}

	return nil
}
