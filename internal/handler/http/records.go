package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

type putRecordRequest struct {
	ID         string            `json:"id,omitempty"`
	RecordType models.RecordType `json:"record_type"`
	Payload    json.RawMessage   `json:"payload"`
}

func (h *Handler) putRecord(w http.ResponseWriter, r *http.Request) {
	var req putRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequestBody, err))
		return
	}

	rec, err := h.services.Records.Put(r.Context(), models.SyncableRecord{
		ID:         req.ID,
		RecordType: req.RecordType,
		Payload:    req.Payload,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, rec, http.StatusOK)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.services.Records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, rec, http.StatusOK)
}

func (h *Handler) removeRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Records.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
