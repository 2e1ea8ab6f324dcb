package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging)

	router.Route("/api/sync", func(r chi.Router) {
		r.Post("/", h.syncNow)
		r.Post("/notify", h.notify)
		r.Get("/status", h.status)
	})
	router.Post("/api/lifecycle/{event}", h.lifecycle)

	router.Route("/api/records", func(r chi.Router) {
		r.Post("/", h.putRecord)
		r.Get("/{id}", h.getRecord)
		r.Delete("/{id}", h.removeRecord)
	})

	router.Get("/api/remote/{recordType}", h.listRemote)

	router.Route("/api/privacy", func(r chi.Router) {
		r.Get("/", h.listConsent)
		r.Put("/{dataType}", h.setConsent)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
