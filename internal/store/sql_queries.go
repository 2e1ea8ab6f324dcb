// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	sq "github.com/Masterminds/squirrel"
)

const (
	recordsTable = "sync_records"
	auditTable   = "privacy_audit"
)

var recordColumns = []string{
	"id",
	"record_type",
	"data_type",
	"payload",
	"version",
	"last_modified",
	"deleted",
	"needs_sync",
}

// psql is the squirrel builder for SQLite's "?" placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const (
	getRecord = `
		SELECT
			id,
			record_type,
			data_type,
			payload,
			version,
			last_modified,
			deleted,
			needs_sync
		FROM sync_records
		WHERE id = ?;`

	getRecordDataType = `SELECT data_type FROM sync_records WHERE id = ?;`

	upsertRecord = `
		INSERT INTO sync_records (
			id,
			record_type,
			data_type,
			payload,
			version,
			last_modified,
			deleted,
			needs_sync
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			record_type   = excluded.record_type,
			payload       = excluded.payload,
			version       = excluded.version,
			last_modified = excluded.last_modified,
			deleted       = excluded.deleted,
			needs_sync    = excluded.needs_sync;`

	deleteRecord = `DELETE FROM sync_records WHERE id = ?;`

	markDirty = `UPDATE sync_records SET needs_sync = 1 WHERE id = ?;`

	loadChangeToken = `SELECT blob, updated_at FROM change_tokens WHERE zone = ?;`

	saveChangeToken = `
		INSERT INTO change_tokens (zone, blob, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (zone) DO UPDATE SET
			blob       = excluded.blob,
			updated_at = excluded.updated_at;`

	clearChangeToken = `DELETE FROM change_tokens WHERE zone = ?;`

	recentAudit = `
		SELECT action, data_type, record_id, record_type, details, created_at
		FROM privacy_audit
		ORDER BY id DESC
		LIMIT ?;`
)

// buildQueryDirty selects the dirty rows of one record type, oldest first.
func buildQueryDirty(recordType string) (string, []any, error) {
	return psql.Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"record_type": recordType, "needs_sync": true}).
		OrderBy("last_modified", "id").
		ToSql()
}

// buildClearDirty clears the dirty flag on every (id, version) pair in refs.
// A row edited after the push has a newer version and is left dirty.
func buildClearDirty(ids []string, versions []int64) (string, []any, error) {
	or := make(sq.Or, 0, len(ids))
	for i := range ids {
		or = append(or, sq.And{sq.Eq{"id": ids[i]}, sq.Eq{"version": versions[i]}})
	}

	return psql.Update(recordsTable).
		Set("needs_sync", false).
		Where(or).
		ToSql()
}

func buildInsertAudit(action, dataType, recordID, recordType, details string, at any) (string, []any, error) {
	return psql.Insert(auditTable).
		Columns("action", "data_type", "record_id", "record_type", "details", "created_at").
		Values(action, dataType, recordID, recordType, details, at).
		ToSql()
}
