package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/storage"
)

// uploadMemoryBytes is how much of a multipart upload is kept in memory
// before spilling to temp files.
const uploadMemoryBytes = 32 << 20

// Upload handles POST /upload (multipart/form-data, field "file").
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(uploadMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large. Limit: "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "No file", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := storage.Extension(header.Filename)
	if !storage.ExtensionAllowed(ext, h.opts.AllowedExtensions) {
		http.Error(w, "File type not allowed. Allowed: "+strings.Join(h.opts.AllowedExtensions, ", "), http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension("." + ext)
	}

	name := storage.NewName(ext)
	if err := h.blobs.Put(r.Context(), name, file, contentType); err != nil {
		slog.Error("upload failed", slog.String("name", name), slog.String("error", err.Error()))
		http.Error(w, "Upload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{URL: h.origin(r) + "/files/" + name})
}

// origin returns the configured public URL or, failing that, the origin the
// request was addressed to.
func (h *Handler) origin(r *http.Request) string {
	if h.opts.PublicURL != "" {
		return strings.TrimRight(h.opts.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

// ServeFile handles GET /files/{name}.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if storage.ValidateName(name) != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	obj, err := h.blobs.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		slog.Error("read attachment failed", slog.String("name", name), slog.String("error", err.Error()))
		http.Error(w, "Error accessing file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer obj.Body.Close()

	hdr := w.Header()
	if obj.ETag != "" {
		hdr.Set("ETag", obj.ETag)
		if etagMatch(r.Header.Get("If-None-Match"), obj.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	if !obj.ModTime.IsZero() {
		hdr.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr.Set("Content-Type", contentType)
	hdr.Set("X-Content-Type-Options", "nosniff")
	if obj.Size > 0 {
		hdr.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.Warn("attachment stream interrupted", slog.String("name", name), slog.String("error", err.Error()))
	}
}

// etagMatch applies the weak comparison of If-None-Match against etag.
func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
