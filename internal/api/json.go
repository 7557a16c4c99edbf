package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/quire/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// saveResponse is the body of POST / saves.
type saveResponse struct {
	Success bool         `json:"success"`
	Note    *models.Note `json:"note,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// uploadResponse is the body of a successful POST /upload.
type uploadResponse struct {
	URL string `json:"url"`
}

func saveError(msg string) saveResponse {
	return saveResponse{Success: false, Error: msg}
}
