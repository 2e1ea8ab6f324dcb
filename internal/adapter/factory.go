package adapter

import (
	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
)

// NewRemoteStore selects the RemoteStore implementation for cfg.Address.
func NewRemoteStore(cfg config.Remote, deviceID string, log *logger.Logger) (RemoteStore, error) {
	if cfg.Address == config.MemoryRemote {
		log.Warn().Str("func", "NewRemoteStore").Msg("using in-process remote store, data is not shared with other devices")
		return NewMemoryRemoteStore(), nil
	}
	return NewHTTPRemoteStore(cfg, deviceID, log)
}
