package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/models"
)

type auditRepository struct {
	*DB
	logger *logger.Logger
}

// NewAuditRepository returns the SQLite-backed privacy audit trail.
func NewAuditRepository(db *DB, logger *logger.Logger) AuditLogRepository {
	return &auditRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *auditRepository) Append(ctx context.Context, e models.AuditEntry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	query, args, err := buildInsertAudit(string(e.Action), string(e.DataType), e.RecordID, string(e.RecordType), e.Details, at.UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "auditRepository.Append").
			Str("action", string(e.Action)).
			Msg("failed to append audit entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *auditRepository) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx, recentAudit, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e                              models.AuditEntry
			recordID, recordType, details sql.NullString
		)
		if err = rows.Scan(&e.Action, &e.DataType, &recordID, &recordType, &details, &e.At); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		e.RecordID = recordID.String
		e.RecordType = models.RecordType(recordType.String)
		e.Details = details.String
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return entries, nil
}
