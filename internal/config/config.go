// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"os"
	"time"

	"github.com/MKhiriev/go-health-sync/models"
)

// StructuredConfig is the top-level configuration container for the
// go-health-sync engine. It aggregates all sub-configurations and is
// populated by merging built-in defaults with values from environment
// variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds device identity and logging settings.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for the local record database.
	Storage Storage `envPrefix:"STORAGE_"`

	// Remote holds the remote record store endpoint and credentials.
	Remote Remote `envPrefix:"REMOTE_"`

	// Server holds the address of the local trigger API.
	Server Server `envPrefix:"SERVER_"`

	// Sync holds scheduling, zone and privacy settings of the sync engine.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from defaults, environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / --config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration.
type App struct {
	// Name is used as the logger role.
	// Env: APP_NAME
	Name string `env:"NAME"`

	// DeviceID identifies this device to the remote store. Defaults to the
	// host name.
	// Env: APP_DEVICE_ID
	DeviceID string `env:"DEVICE_ID"`

	// LogFile, when set, redirects logs from stdout to the given file.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Storage groups the configuration of the local persistence backend.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite data source name, e.g. "healthsync.db" or
	// "file:healthsync.db?_journal_mode=WAL". The special value ":memory:"
	// selects the in-process stores.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Remote holds settings for the remote record store.
type Remote struct {
	// Address is the base URL of the remote store API, e.g.
	// "https://sync.example.com". "memory://" selects an in-process store.
	// Env: REMOTE_ADDRESS
	Address string `env:"ADDRESS"`

	// AuthToken is the bearer token presented to the remote store.
	// Env: REMOTE_AUTH_TOKEN
	AuthToken string `env:"AUTH_TOKEN"`

	// RequestTimeout bounds a single request/response exchange. Change
	// streams and subscriptions are bounded by their context instead.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Server holds network settings for the local trigger API.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format (e.g. "localhost:8090").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`
}

// Sync holds the sync engine settings.
type Sync struct {
	// Interval between scheduled sync cycles.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// Zones lists the remote zones pulled every cycle.
	// Env: SYNC_ZONES (comma separated)
	Zones []string `env:"ZONES" envSeparator:","`

	// DeniedDataTypes lists data types the user has not consented to sync.
	// Env: SYNC_DENIED_DATA_TYPES (comma separated)
	DeniedDataTypes []string `env:"DENIED_DATA_TYPES" envSeparator:","`

	// PushConcurrency bounds how many record types are pushed in parallel.
	// Env: SYNC_PUSH_CONCURRENCY
	PushConcurrency int `env:"PUSH_CONCURRENCY"`
}

// DeniedSet returns DeniedDataTypes as data types. Unknown names are
// rejected earlier by validate.
func (s Sync) DeniedSet() []models.DataType {
	out := make([]models.DataType, 0, len(s.DeniedDataTypes))
	for _, name := range s.DeniedDataTypes {
		if dt, err := models.ParseDataType(name); err == nil {
			out = append(out, dt)
		}
	}
	return out
}

// MemoryDSN selects the in-process local stores.
const MemoryDSN = ":memory:"

// MemoryRemote selects the in-process remote store.
const MemoryRemote = "memory://"

func defaults() *StructuredConfig {
	deviceID, err := os.Hostname()
	if err != nil || deviceID == "" {
		deviceID = "local-device"
	}

	return &StructuredConfig{
		App: App{
			Name:     "healthsync",
			DeviceID: deviceID,
		},
		Storage: Storage{DB: DB{DSN: "healthsync.db"}},
		Remote: Remote{
			Address:        MemoryRemote,
			RequestTimeout: 30 * time.Second,
		},
		Server: Server{HTTPAddress: "localhost:8090"},
		Sync: Sync{
			Interval:        5 * time.Minute,
			Zones:           []string{models.DefaultZone},
			PushConcurrency: 4,
		},
	}
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources in the following priority order (last source wins
// for non-zero fields):
//  1. Built-in defaults
//  2. Environment variables
//  3. Command-line flags, as bound by [RegisterFlags]
//  4. JSON file (path resolved from sources 2 and 3)
//
// flagCfg may be nil when no flags were registered.
func GetStructuredConfig(flagCfg *StructuredConfig) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(flagCfg).
		withJSON().
		build()
}
