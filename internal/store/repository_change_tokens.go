package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/models"
)

type changeTokenRepository struct {
	*DB
	logger *logger.Logger
}

// NewChangeTokenRepository returns the SQLite-backed ChangeTokenStore.
func NewChangeTokenRepository(db *DB, logger *logger.Logger) ChangeTokenStore {
	return &changeTokenRepository{
		DB:     db,
		logger: logger,
	}
}

// Load returns nil when the zone has no cursor or the stored blob cannot be
// trusted as a resume point; both cases lead to a full refetch.
func (r *changeTokenRepository) Load(ctx context.Context, zone string) (*models.Cursor, error) {
	var (
		blob      []byte
		updatedAt time.Time
	)
	err := r.DB.QueryRowContext(ctx, loadChangeToken, zone).Scan(&blob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeTokenRepository.Load").
			Str("zone", zone).
			Msg("failed to load change token")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return decodeStoredCursor(ctx, zone, blob, updatedAt), nil
}

func (r *changeTokenRepository) Save(ctx context.Context, cursor models.Cursor) error {
	blob, err := models.EncodeCursor(cursor)
	if err != nil {
		return err
	}

	updatedAt := cursor.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	if _, err = r.DB.ExecContext(ctx, saveChangeToken, cursor.Zone, blob, updatedAt.UTC()); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeTokenRepository.Save").
			Str("zone", cursor.Zone).
			Msg("failed to save change token")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *changeTokenRepository) Clear(ctx context.Context, zone string) error {
	if _, err := r.DB.ExecContext(ctx, clearChangeToken, zone); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeTokenRepository.Clear").
			Str("zone", zone).
			Msg("failed to clear change token")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func decodeStoredCursor(ctx context.Context, zone string, blob []byte, updatedAt time.Time) *models.Cursor {
	cursor, err := models.DecodeCursor(zone, blob)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).
			Str("func", "decodeStoredCursor").
			Str("zone", zone).
			Msg("stored change token is unusable, zone will be fetched from scratch")
		return nil
	}
	cursor.UpdatedAt = updatedAt
	return &cursor
}
