package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

// maxFormBytes bounds the in-memory part of note and login forms.
const maxFormBytes = 10 << 20

// Options holds the HTTP-facing settings of a Handler.
type Options struct {
	// PublicURL is the origin used in upload URLs. Empty means the request
	// origin.
	PublicURL         string
	CookieSecure      bool
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Handler holds the route handlers.
type Handler struct {
	svc      *noteservice.Service
	blobs    storage.Provider
	gate     *auth.Gate
	throttle *auth.Throttle
	views    *views
	opts     Options
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, blobs storage.Provider, gate *auth.Gate, throttle *auth.Throttle, opts Options) *Handler {
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = storage.DefaultAllowedExtensions
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	return &Handler{
		svc:      svc,
		blobs:    blobs,
		gate:     gate,
		throttle: throttle,
		views:    newViews(),
		opts:     opts,
	}
}

// parseForm parses url-encoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// parsePage reads the 1-based page parameter. Anything unparsable is page 1.
func parsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return n
}

// Index handles GET /: an action when action (and id) are given, otherwise
// the active or trash listing.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trash := q.Has("trash")
	if a, ok := noteservice.ParseAction(q.Get("action"), q.Get("id")); ok {
		h.apply(w, r, a, trash)
		return
	}

	ctx := r.Context()
	page, err := h.svc.List(ctx, trash, parsePage(q.Get("page")))
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	trashCount := page.Total
	if !trash {
		if trashCount, err = h.svc.Count(ctx, true); err != nil {
			slog.Error("count trash failed", slog.String("error", err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	h.render(w, http.StatusOK, "notes.html", h.views.notesPage(page, trash, trashCount))
}

// Submit handles POST /: an action when the form names one, otherwise a
// save answered with JSON.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeJSON(w, http.StatusBadRequest, saveError("invalid form: "+err.Error()))
		return
	}
	if a, ok := noteservice.ParseAction(r.FormValue("action"), r.FormValue("id")); ok {
		h.apply(w, r, a, r.Form.Has("trash"))
		return
	}

	note, err := h.svc.Save(r.Context(), r.FormValue("id"), r.FormValue("content"))
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, saveError(err.Error()))
			return
		}
		slog.Error("save note failed", slog.String("id", r.FormValue("id")), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, saveError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true, Note: note})
}

// apply runs a lifecycle action and redirects back to the view it belongs to.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, a noteservice.Action, trash bool) {
	c, err := h.svc.Apply(r.Context(), a)
	if err != nil {
		slog.Error("note action failed", slog.String("action", a.Name()), slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(c.Orphaned) > 0 {
		slog.Warn("attachments left behind",
			slog.String("action", a.Name()),
			slog.Any("orphaned", c.Orphaned))
	}
	http.Redirect(w, r, redirectFor(a, trash), http.StatusFound)
}

// redirectFor returns the view an action returns to: deleting goes back to
// the view it came from, everything else lands in the trash.
func redirectFor(a noteservice.Action, trash bool) string {
	if _, ok := a.(noteservice.DeleteAction); ok && !trash {
		return "/"
	}
	return "/?trash=1"
}

// Initialize handles POST /?init=1 while no config record exists.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.render(w, http.StatusBadRequest, "form.html", initPage("Invalid form."))
		return
	}
	err := h.gate.Initialize(r.Context(), r.FormValue("password"))
	switch {
	case err == nil, errors.Is(err, apperr.ErrAlreadyInitialized):
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.Is(err, apperr.ErrInvalidInput):
		h.render(w, http.StatusBadRequest, "form.html", initPage("A password is required."))
	default:
		slog.Error("initialize failed", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// LoginForm handles GET /login.
func (h *Handler) LoginForm(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, "form.html", loginPage(""))
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.throttle.Allow() {
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}
	if err := parseForm(r); err != nil {
		h.render(w, http.StatusBadRequest, "form.html", loginPage("Invalid form."))
		return
	}
	token, err := h.gate.Login(r.Context(), r.FormValue("password"))
	switch {
	case err == nil:
		auth.SetSessionCookie(w, token, h.gate.TTL(), h.opts.CookieSecure)
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.Is(err, apperr.ErrUnauthorized):
		slog.Info("login rejected", slog.String("remote", r.RemoteAddr))
		h.render(w, http.StatusOK, "form.html", loginPage("Wrong password."))
	default:
		slog.Error("login failed", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Logout handles GET /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.opts.CookieSecure)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. It fails while the metadata store is
// unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.gate.Initialized(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
