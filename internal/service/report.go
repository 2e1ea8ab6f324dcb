package service

import (
	"github.com/MKhiriev/go-health-sync/models"
)

// SyncReport is the JSON view of a SyncOutcome shown to users and returned
// by the trigger API.
type SyncReport struct {
	models.SyncOutcome

	Error        string            `json:"error,omitempty"`
	ErrorClass   models.ErrorClass `json:"error_class,omitempty"`
	PushError    string            `json:"push_error,omitempty"`
	PullError    string            `json:"pull_error,omitempty"`
	RecordErrors []string          `json:"record_errors,omitempty"`
}

func NewSyncReport(out models.SyncOutcome) SyncReport {
	r := SyncReport{SyncOutcome: out, ErrorClass: Classify(out.Err)}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	if out.PushErr != nil {
		r.PushError = out.PushErr.Error()
	}
	if out.PullErr != nil {
		r.PullError = out.PullErr.Error()
	}
	for _, err := range out.Pull.RecordErrors {
		r.RecordErrors = append(r.RecordErrors, err.Error())
	}
	return r
}
