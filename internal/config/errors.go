package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidRemoteConfigs indicates invalid remote store settings
	// (for example, missing address or request timeout).
	ErrInvalidRemoteConfigs = errors.New("invalid remote configuration")
	// ErrInvalidSyncConfigs indicates invalid sync settings (for example,
	// zero interval, no zones or an unknown denied data type).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidAppConfigs indicates invalid application-level settings
	// (for example, missing device ID).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
)
