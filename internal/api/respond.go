package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kdimtricp/vsearch/internal/ai"
	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/search"
)

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorBody struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: apiError{Kind: kind, Message: message}})
}

// writeDomainError maps domain sentinels onto HTTP statuses and wire kinds.
// Anything unmapped is an internal error; its detail stays in the log.
func writeDomainError(w http.ResponseWriter, err error) {
	var upstream *ai.UpstreamError

	switch {
	case errors.Is(err, library.ErrNotFound),
		errors.Is(err, ai.ErrUnknownModel),
		errors.Is(err, search.ErrNoVideosInScope):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, library.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ai.ErrModelUnavailable),
		errors.Is(err, search.ErrModelNotLoaded):
		writeError(w, http.StatusConflict, "model_unavailable", err.Error())
	case errors.Is(err, library.ErrInvalidURL),
		errors.Is(err, library.ErrUnsupportedFile),
		errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrInvalidSearchType):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		log.Printf("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
