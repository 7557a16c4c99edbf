// Package api implements the Quire web interface using chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/auth"
)

// isInitRequest reports whether r is the first-run submission POST /?init=1.
func isInitRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == "/" && r.URL.Query().Get("init") == "1"
}

// RequireInitialized checks the config record on every request. While it
// is absent, POST /?init=1 initializes and anything else gets the
// initialization form. Once present, further init submissions redirect home.
func (h *Handler) RequireInitialized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := h.gate.Initialized(r.Context())
		if err != nil {
			slog.Error("config lookup failed", slog.String("error", err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		switch {
		case !ok && isInitRequest(r):
			h.Initialize(w, r)
		case !ok:
			h.render(w, http.StatusOK, "form.html", initPage(""))
		case isInitRequest(r):
			http.Redirect(w, r, "/", http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequireSession renders the login form, with status 200, for requests
// without a valid session cookie.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.gate.Verify(r.Context(), auth.TokenFromRequest(r))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, apperr.ErrUnauthorized):
			h.render(w, http.StatusOK, "form.html", loginPage(""))
		default:
			slog.Error("session check failed", slog.String("error", err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
