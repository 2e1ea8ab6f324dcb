package models

import "time"

// AuditAction names a privacy-relevant step taken by the engine.
type AuditAction string

const (
	AuditPushAllowed AuditAction = "push_allowed"
	AuditPushDenied  AuditAction = "push_denied"
	AuditPullAllowed AuditAction = "pull_allowed"
	AuditPullDenied  AuditAction = "pull_denied"
	AuditApplied     AuditAction = "applied"
	AuditDeleted     AuditAction = "deleted"
	AuditSkipped     AuditAction = "skipped"
)

// AuditEntry is one record of the privacy audit trail.
type AuditEntry struct {
	Action     AuditAction `json:"action"`
	DataType   DataType    `json:"data_type"`
	RecordID   string      `json:"record_id,omitempty"`
	RecordType RecordType  `json:"record_type,omitempty"`
	Details    string      `json:"details,omitempty"`
	At         time.Time   `json:"at"`
}
