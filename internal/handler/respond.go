// Package handler contains the HTTP handlers for the Kairos JSON API.
//
// Handlers decode requests, call services, and encode responses. All business
// rules live in the service layer; handlers never touch the repository
// directly.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

// maxRequestBody bounds JSON request bodies. Attachment uploads have their
// own, larger limit.
const maxRequestBody = 1 << 20 // 1 MB

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads a JSON request body into dst.
// Returns domain.EINVALID for malformed or oversized bodies.
func decodeJSON(r *http.Request, dst interface{}) error {
	const op = "handler.decode"

	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.Invalid(op, "Request body is too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is required")
		default:
			return domain.Invalid(op, "Request body is not valid JSON")
		}
	}

	// A second document in the body means the client sent garbage.
	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object")
	}

	return nil
}

// pathUUID parses the named path parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	const op = "handler.path"

	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "Invalid "+name+" in URL")
	}
	return id, nil
}

// parseUUID parses a UUID from a request body field.
func parseUUID(op, field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "Invalid "+field)
	}
	return id, nil
}
