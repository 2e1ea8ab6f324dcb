package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/service"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

// syncNow runs a cycle and answers with its report once it finished. A
// cycle that ended in error still answers 200; the report carries the error
// and its class. The cycle outlives a client that disconnects.
func (h *Handler) syncNow(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithTriggerSource(r.Context(), models.TriggerManual)

	out := h.services.Engine.RunFullSync(ctx)

	if _, err := utils.WriteJSON(w, service.NewSyncReport(out), http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.syncNow").Msg("writing response failed")
	}
}

// notify forwards a remote change notification. The body is optional.
func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	var n models.PushNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequestBody, err))
		return
	}
	if n.Zone == "" {
		n.Zone = models.DefaultZone
	}

	h.services.Subscription.Notify(n)
	w.WriteHeader(http.StatusAccepted)
}

// lifecycle starts a cycle in the background for foreground and background
// transitions of the host application.
func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request) {
	event := chi.URLParam(r, "event")
	source, ok := models.ParseLifecycleEvent(event)
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: %q", ErrUnknownLifecycleEvent, event))
		return
	}

	ctx := utils.WithTriggerSource(context.WithoutCancel(r.Context()), source)
	go h.services.Engine.RunFullSync(ctx)

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.WriteJSON(w, h.services.Engine.Status(), http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.status").Msg("writing response failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	event := logger.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		event = logger.FromRequest(r).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	utils.WriteError(w, err.Error(), status)
}
