package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with every page, action and file route.
//
// Static assets and health checks are always reachable. Everything else
// passes the initialization gate; files, login and upload are public, the
// note views require a session.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/static/app.js", h.Script)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireInitialized)

		r.Get("/files/{name}", h.ServeFile)
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Post("/upload", h.Upload)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/", h.Index)
			r.Post("/", h.Submit)
			r.Get("/logout", h.Logout)
		})
	})

	// A known path with the wrong method is as unmatched as an unknown path.
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}
