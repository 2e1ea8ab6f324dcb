package models

import (
	"slices"
	"time"
)

// HealthEntry is a single biometric measurement (heart rate, steps, weight...).
type HealthEntry struct {
	// Metric names the measured quantity, e.g. "heart_rate".
	Metric string `json:"metric"`
	// Value is the measured value in Unit.
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	// SampleCount is the number of raw samples aggregated into Value.
	SampleCount int       `json:"sample_count"`
	RecordedAt  time.Time `json:"recorded_at"`
	Source      string    `json:"source,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

func (HealthEntry) DataType() DataType { return DataTypeBiometric }

// MergeWith combines two concurrent versions of the same entry: tags are
// unioned, the sample counter keeps the larger value and every other field
// is taken from remote.
func (h HealthEntry) MergeWith(remote HealthEntry) HealthEntry {
	out := remote
	out.Tags = unionTags(h.Tags, remote.Tags)
	out.SampleCount = max(h.SampleCount, remote.SampleCount)
	return out
}

// SleepSession is one night (or nap) of tracked sleep.
type SleepSession struct {
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	Quality       int       `json:"quality"`
	Interruptions int       `json:"interruptions"`
	Notes         string    `json:"notes,omitempty"`
}

func (SleepSession) DataType() DataType { return DataTypeSleep }

// MoodLog is a self-reported mood entry.
type MoodLog struct {
	Mood      string    `json:"mood"`
	Intensity int       `json:"intensity"`
	Note      string    `json:"note,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	LoggedAt  time.Time `json:"logged_at"`
}

func (MoodLog) DataType() DataType { return DataTypeMood }

// MergeWith unions the tag sets and takes all scalar fields from remote.
func (m MoodLog) MergeWith(remote MoodLog) MoodLog {
	out := remote
	out.Tags = unionTags(m.Tags, remote.Tags)
	return out
}

// MLModelMetadata describes an on-device model trained from the user's data.
type MLModelMetadata struct {
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
	Accuracy     float64   `json:"accuracy"`
	SampleCount  int       `json:"sample_count"`
	TrainedAt    time.Time `json:"trained_at"`
}

func (MLModelMetadata) DataType() DataType { return DataTypeModel }

// ExportStatus is the lifecycle state of an export request.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

var exportStatusRank = map[ExportStatus]int{
	ExportPending:    0,
	ExportProcessing: 1,
	ExportCompleted:  2,
	ExportFailed:     2,
}

// ExportRequest is a user request to export a range of health data.
type ExportRequest struct {
	Format      string       `json:"format"`
	Status      ExportStatus `json:"status"`
	RangeFrom   time.Time    `json:"range_from"`
	RangeTo     time.Time    `json:"range_to"`
	RequestedAt time.Time    `json:"requested_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (ExportRequest) DataType() DataType { return DataTypeExport }

// MergeWith keeps the most advanced status; every other field comes from
// remote. A completion time is kept from whichever side has one.
func (e ExportRequest) MergeWith(remote ExportRequest) ExportRequest {
	out := remote
	if exportStatusRank[e.Status] > exportStatusRank[remote.Status] {
		out.Status = e.Status
	}
	if out.CompletedAt == nil {
		out.CompletedAt = e.CompletedAt
	}
	return out
}

// unionTags returns the sorted, de-duplicated union of a and b.
func unionTags(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
