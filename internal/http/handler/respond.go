package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/event"
	"github.com/JG3233/babybuddy/internal/family"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service failures onto the API contract: denial never
// reveals whether the resource exists, validation stays generic, and anything
// unexpected is logged here and surfaced as a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, family.ErrAccessDenied):
		jsonError(w, "not found or not authorized", http.StatusForbidden)
	case event.IsValidation(err),
		errors.Is(err, baby.ErrInvalidTimezone),
		errors.Is(err, baby.ErrNameRequired),
		errors.Is(err, family.ErrInvalidRole):
		jsonError(w, "invalid request payload", http.StatusBadRequest)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		jsonError(w, "already exists", http.StatusConflict)
	default:
		slog.Error("unexpected service error", "err", err)
		jsonError(w, "unable to process request", http.StatusInternalServerError)
	}
}
