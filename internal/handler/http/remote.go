package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

// listRemote answers with the remote copies of one record type. The query
// accepts repeated id parameters and an RFC 3339 since.
func (h *Handler) listRemote(w http.ResponseWriter, r *http.Request) {
	recordType := models.RecordType(chi.URLParam(r, "recordType"))

	pred := models.FetchPredicate{IDs: r.URL.Query()["id"]}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: since: %w", ErrInvalidQuery, err))
			return
		}
		pred.ModifiedSince = &since
	}

	records, err := h.services.Remote.List(r.Context(), recordType, pred)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err = utils.WriteJSON(w, records, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.listRemote").Msg("writing response failed")
	}
}
