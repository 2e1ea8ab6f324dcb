package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/service"
	"github.com/MKhiriev/go-health-sync/internal/store"
)

var errorStatusMap = map[error]int{
	ErrUnknownLifecycleEvent: http.StatusBadRequest,
	ErrInvalidRequestBody:    http.StatusBadRequest,
	ErrUnknownDataType:       http.StatusBadRequest,
	ErrInvalidQuery:          http.StatusBadRequest,

	service.ErrDataTypeDenied: http.StatusForbidden,

	registry.ErrUnknownRecordType: http.StatusBadRequest,
	registry.ErrEmptyPayload:      http.StatusBadRequest,
	registry.ErrMalformedPayload:  http.StatusBadRequest,
	registry.ErrMissingRecordID:   http.StatusBadRequest,

	store.ErrRecordNotFound:   http.StatusNotFound,
	store.ErrDataTypeMismatch: http.StatusConflict,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
