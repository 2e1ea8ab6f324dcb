package models

import (
	"time"
)

// ConflictDecision is the outcome of comparing a local and a remote version
// of the same record.
type ConflictDecision string

const (
	UseLocal  ConflictDecision = "use_local"
	UseRemote ConflictDecision = "use_remote"
	Merge     ConflictDecision = "merge"
)

// ConflictCounts counts resolver decisions taken during a pull.
type ConflictCounts struct {
	UseLocal  int `json:"use_local"`
	UseRemote int `json:"use_remote"`
	Merge     int `json:"merge"`
}

// Add counts one decision.
func (c *ConflictCounts) Add(d ConflictDecision) {
	switch d {
	case UseLocal:
		c.UseLocal++
	case UseRemote:
		c.UseRemote++
	case Merge:
		c.Merge++
	}
}

// Total returns the number of decisions taken.
func (c ConflictCounts) Total() int {
	return c.UseLocal + c.UseRemote + c.Merge
}

// PushResult summarizes the push of one or more record types.
type PushResult struct {
	// Pushed is the number of records acknowledged by the remote store.
	Pushed int `json:"pushed"`
	// Failed is the number of allowed records that stayed dirty because the
	// remote store rejected them or could not be reached.
	Failed int `json:"failed"`
	// Skipped is the number of records held back by the privacy gate.
	Skipped int `json:"skipped"`
}

// Add accumulates other into r.
func (r *PushResult) Add(other PushResult) {
	r.Pushed += other.Pushed
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

// PullResult summarizes the pull of one or more zones.
type PullResult struct {
	Applied       int            `json:"applied"`
	Deleted       int            `json:"deleted"`
	Conflicts     ConflictCounts `json:"conflicts"`
	Skipped       int            `json:"skipped"`
	MergeFailures int            `json:"merge_failures"`
	// RecordErrors holds record-level failures. They never abort a zone.
	RecordErrors []error `json:"-"`
}

// Add accumulates other into r.
func (r *PullResult) Add(other PullResult) {
	r.Applied += other.Applied
	r.Deleted += other.Deleted
	r.Conflicts.UseLocal += other.Conflicts.UseLocal
	r.Conflicts.UseRemote += other.Conflicts.UseRemote
	r.Conflicts.Merge += other.Conflicts.Merge
	r.Skipped += other.Skipped
	r.MergeFailures += other.MergeFailures
	r.RecordErrors = append(r.RecordErrors, other.RecordErrors...)
}

// SyncOutcome is the transient result of one full sync cycle. It is rebuilt
// every cycle and never persisted.
type SyncOutcome struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Push PushResult `json:"push"`
	Pull PullResult `json:"pull"`

	// PushErr and PullErr are the phase-level errors; each phase reports
	// independently.
	PushErr error `json:"-"`
	PullErr error `json:"-"`

	// Err is the terminal error of the cycle, if any.
	Err error `json:"-"`
}

// SyncState is the externally observable state of the engine.
type SyncState string

const (
	StateIdle    SyncState = "idle"
	StateSyncing SyncState = "syncing"
	StateError   SyncState = "error"
)

// ErrorClass is the coarse classification of the last cycle error, meant for
// a status indicator rather than for display.
type ErrorClass string

const (
	ErrorClassNone      ErrorClass = ""
	ErrorClassAdapter   ErrorClass = "adapter"
	ErrorClassConflict  ErrorClass = "conflict"
	ErrorClassCursor    ErrorClass = "cursor"
	ErrorClassCancelled ErrorClass = "cancelled"
	ErrorClassUnknown   ErrorClass = "unknown"
)

// SyncStatus is published by the coordinator on every state change.
type SyncStatus struct {
	State      SyncState  `json:"state"`
	ErrorClass ErrorClass `json:"error_class,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	At         time.Time  `json:"at"`
}

// TriggerSource names what asked for a sync cycle.
type TriggerSource string

const (
	TriggerForeground TriggerSource = "foreground"
	TriggerBackground TriggerSource = "background"
	TriggerRemotePush TriggerSource = "remote_push"
	TriggerManual     TriggerSource = "manual"
	TriggerSchedule   TriggerSource = "schedule"
)

// ParseLifecycleEvent maps an app lifecycle event name to its trigger source.
func ParseLifecycleEvent(event string) (TriggerSource, bool) {
	switch TriggerSource(event) {
	case TriggerForeground, TriggerBackground:
		return TriggerSource(event), true
	default:
		return "", false
	}
}
