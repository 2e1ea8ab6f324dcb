package privacy

import (
	"context"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/models"
)

// LogSink writes audit entries as structured log lines.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Append(_ context.Context, e models.AuditEntry) error {
	s.log.Info().
		Str("audit", string(e.Action)).
		Str("data_type", string(e.DataType)).
		Str("record_id", e.RecordID).
		Str("record_type", string(e.RecordType)).
		Str("details", e.Details).
		Time("at", e.At).
		Msg("privacy audit")
	return nil
}
