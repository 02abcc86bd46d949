package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"leasesign/internal/service"
	"leasesign/internal/utils"
)

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, map[string]string{"error": userMsg})
}

// respondWithServiceError translates the service error taxonomy to HTTP
// statuses. Upstream failures keep their details in the log only; the client
// gets a generic message.
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	var vErr utils.ValidationError

	switch {
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, vErr.Error(), logMsg, err)
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not found", logMsg, err)
	case errors.Is(err, service.ErrAlreadySigned):
		respondWithError(w, http.StatusConflict, "invitation already signed", logMsg, err)
	case errors.Is(err, service.ErrExpired):
		respondWithError(w, http.StatusGone, "invitation expired", logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error", logMsg, err)
	}
}
