package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

// ConsentResponse lists the data types that currently may not cross the
// device boundary.
type ConsentResponse struct {
	Denied []models.DataType `json:"denied"`
}

// ConsentRequest grants or revokes consent for the data type in the path.
type ConsentRequest struct {
	Allowed *bool `json:"allowed"`
}

func (h *Handler) listConsent(w http.ResponseWriter, r *http.Request) {
	h.writeConsent(w, r)
}

// setConsent answers with the denied list after the change.
func (h *Handler) setConsent(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "dataType")
	dataType, err := models.ParseDataType(raw)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", ErrUnknownDataType, err))
		return
	}

	var req ConsentRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequestBody, err))
		return
	}
	if req.Allowed == nil {
		h.writeError(w, r, fmt.Errorf("%w: allowed is required", ErrInvalidRequestBody))
		return
	}

	if err = h.services.Consent.SetAllowed(r.Context(), dataType, *req.Allowed); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeConsent(w, r)
}

func (h *Handler) writeConsent(w http.ResponseWriter, r *http.Request) {
	resp := ConsentResponse{Denied: h.services.Consent.Denied()}
	if _, err := utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.writeConsent").Msg("writing response failed")
	}
}
