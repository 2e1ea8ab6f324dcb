package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-health-sync/internal/registry"
	"github.com/MKhiriev/go-health-sync/internal/store"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown lifecycle event", fmt.Errorf("%w: %q", ErrUnknownLifecycleEvent, "x"), http.StatusBadRequest},
		{"wrapped malformed payload", fmt.Errorf("put: %w", registry.ErrMalformedPayload), http.StatusBadRequest},
		{"record not found", store.ErrRecordNotFound, http.StatusNotFound},
		{"data type mismatch", store.ErrDataTypeMismatch, http.StatusConflict},
		{"sql failure", fmt.Errorf("%w: %w", store.ErrExecutingQuery, errors.New("disk I/O error")), http.StatusInternalServerError},
		{"unmapped error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromError(tt.err))
		})
	}
}
