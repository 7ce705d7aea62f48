package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"idscan/internal/extraction"
	"idscan/internal/session"
	"idscan/internal/students"
)

// API holds the dependencies shared by the HTTP handlers.
type API struct {
	Extractor      *extraction.Extractor
	ModelName      string
	APIKeySet      bool
	MaxUploadBytes int64

	Students     *students.Service
	Sessions     *session.Manager
	SecureCookie bool

	Logger *slog.Logger
}

func (a *API) log() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
