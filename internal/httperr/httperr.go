// Package httperr defines the error taxonomy the API surfaces to clients and
// maps it onto HTTP responses. Handlers and services return *Error values;
// Write serializes them as {"message": ...} with the matching status code.
// The underlying cause is kept for logging and never leaves the server.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Error is an API-visible error with an HTTP status and a client-safe message.
type Error struct {
	Status  int
	Message string
	Err     error // retained cause, logged only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed or missing input fields.
func Validation(msg string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Message: msg}
}

// NotFound reports a referenced entity that does not exist.
func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

// Forbidden reports an authenticated identity that does not own the resource.
func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

// Conflict reports a uniqueness violation.
func Conflict(msg string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Message: msg}
}

// Persistence reports a storage or transaction failure.
func Persistence(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// Credential reports a hashing or signing subsystem failure.
func Credential(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// Write sends err to the client as a JSON {"message": ...} body. Errors that
// are not *Error values are treated as internal and get a generic 500 body so
// no raw storage or library error crosses the boundary.
func Write(w http.ResponseWriter, log zerolog.Logger, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = &Error{
			Status:  http.StatusInternalServerError,
			Message: "An unknown error occurred.",
			Err:     err,
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", apiErr.Status).Msg(apiErr.Message)
	} else {
		log.Debug().Err(err).Int("status", apiErr.Status).Msg(apiErr.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(map[string]string{"message": apiErr.Message})
}

// WriteJSON writes a success response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
