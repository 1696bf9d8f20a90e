package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"doc-markup/internal/app"
	"doc-markup/internal/auth"
	"doc-markup/internal/httputil"
	"doc-markup/internal/session"
)

// api holds what the handlers share.
type api struct {
	deps     app.Deps
	sessions *session.Manager
	tokens   *auth.Issuer
}

func (a *api) routes() http.Handler {
	r := httputil.NewRouter(a.deps.Log)

	r.Get("/healthz", httputil.HealthHandler(a.deps.Log))

	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", a.uploadDocument)
		r.Get("/", a.listDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getDocument)
			r.Delete("/", a.deleteDocument)
			r.Get("/annotations", a.listAnnotations)
			r.Post("/sessions", a.openSession)
		})
	})

	r.Route("/api/sessions/{sid}", func(r chi.Router) {
		r.Use(a.requireSession)
		r.Delete("/", a.closeSession)
		r.Get("/state", a.sessionState)
		r.Put("/surface", a.setSurface)
		r.Post("/tools/{tool}", a.toggleTool)
		r.Post("/toolbar", a.setToolbar)
		r.Post("/pointer", a.pointer)
		r.Post("/edit", a.edit)
		r.Post("/commit", a.commit)
		r.Post("/cancel", a.cancel)
		r.Delete("/annotations/{aid}", a.deleteAnnotation)
		r.Get("/render", a.render)
		r.Post("/export", a.export)
	})

	return r
}
