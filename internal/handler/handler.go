package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"catalog-sync/internal/model"
	"catalog-sync/internal/repository"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request payloads.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// writeServiceError maps service failures onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: model.ErrCodeInternalError})
		return
	}

	status := http.StatusBadRequest
	if de.Code == model.ErrCodeNotFound {
		status = http.StatusNotFound
	}

	logger.Warn().Str("code", de.Code).Str("message", de.Message).Int("status", status).Msg("request rejected")
	writeJSON(w, status, model.ErrorResponse{Error: de.Code, Message: de.Message})
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseFilter turns at most one query parameter into an equality filter.
func parseFilter(query url.Values) (repository.Filter, error) {
	if len(query) == 0 {
		return repository.Filter{}, nil
	}
	if len(query) > 1 {
		return repository.Filter{}, fmt.Errorf("only one filter parameter is supported")
	}

	for field, values := range query {
		if len(values) != 1 {
			return repository.Filter{}, fmt.Errorf("filter %s must have exactly one value", field)
		}
		return repository.Filter{Field: field, Value: values[0]}, nil
	}

	return repository.Filter{}, nil
}

// pathID returns the {id} path value, rejecting a body that names a different record.
func pathID(r *http.Request, bodyID string) (string, error) {
	id := r.PathValue("id")
	if id == "" {
		return "", fmt.Errorf("record ID is required")
	}
	if bodyID != "" && bodyID != id {
		return "", fmt.Errorf("body ID %q does not match path ID %q", bodyID, id)
	}
	return id, nil
}
