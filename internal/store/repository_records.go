package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/models"
)

type recordRepository struct {
	*DB
	logger *logger.Logger
}

// NewRecordRepository returns the SQLite-backed LocalRecordStore.
func NewRecordRepository(db *DB, logger *logger.Logger) LocalRecordStore {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.SyncableRecord, error) {
	var (
		rec     models.SyncableRecord
		payload []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.RecordType,
		&rec.DataType,
		&payload,
		&rec.Version,
		&rec.LastModified,
		&rec.Deleted,
		&rec.NeedsSync,
	)
	if len(payload) > 0 {
		rec.Payload = payload
	}
	return rec, err
}

func (r *recordRepository) QueryDirty(ctx context.Context, recordType models.RecordType) ([]models.SyncableRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildQueryDirty(string(recordType))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.QueryDirty").
			Str("record_type", string(recordType)).
			Msg("failed to query dirty records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.SyncableRecord
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.QueryDirty").
				Str("record_type", string(recordType)).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return records, nil
}

func (r *recordRepository) Get(ctx context.Context, id string) (models.SyncableRecord, error) {
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, getRecord, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncableRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.Get").
			Str("id", id).
			Msg("failed to get record")
		return models.SyncableRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return rec, nil
}

// Upsert runs the data type check and the write in one transaction so a
// concurrent writer cannot slip a row with another classification in between.
func (r *recordRepository) Upsert(ctx context.Context, rec models.SyncableRecord) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Upsert").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	var stored models.DataType
	err = tx.QueryRowContext(ctx, getRecordDataType, rec.ID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	case stored != rec.DataType:
		return fmt.Errorf("%w: id %s stored as %s, got %s", ErrDataTypeMismatch, rec.ID, stored, rec.DataType)
	}

	var payload []byte
	if len(rec.Payload) > 0 {
		payload = rec.Payload
	}

	_, err = tx.ExecContext(ctx, upsertRecord,
		rec.ID,
		rec.RecordType,
		rec.DataType,
		payload,
		rec.Version,
		rec.LastModified.UTC(),
		rec.Deleted,
		rec.NeedsSync,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Upsert").
			Str("id", rec.ID).
			Msg("failed to execute upsert for record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, deleteRecord, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.Delete").
			Str("id", id).
			Msg("failed to delete record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *recordRepository) ClearDirty(ctx context.Context, refs []models.RecordRef) error {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]string, len(refs))
	versions := make([]int64, len(refs))
	for i, ref := range refs {
		ids[i], versions[i] = ref.ID, ref.Version
	}

	query, args, err := buildClearDirty(ids, versions)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.ClearDirty").
			Int("refs", len(refs)).
			Msg("failed to clear dirty flags")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if cleared, err := res.RowsAffected(); err == nil && cleared < int64(len(refs)) {
		logger.FromContext(ctx).Debug().
			Str("func", "recordRepository.ClearDirty").
			Int64("cleared", cleared).
			Int("refs", len(refs)).
			Msg("some records were edited during push and stay dirty")
	}

	return nil
}

func (r *recordRepository) MarkDirty(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, markDirty, id)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.MarkDirty").
			Str("id", id).
			Msg("failed to mark record dirty")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return nil
}
