package utils

import (
	"fmt"
	"net/http"
)

// APIError carries the HTTP status a failure should be reported with.
// Message is what the client sees; Err stays server side.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: message}
}

func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message}
}

func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Message: message}
}

func TooManyRequests(message string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Message: message}
}

func Internal(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// Upstream wraps a failure of an external collaborator (blob store, mailer)
// with a generic client message.
func Upstream(message string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message, Err: err}
}
