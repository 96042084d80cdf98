package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
)

var errorLogger = log.New(os.Stderr, "API: ", log.LstdFlags|log.Lshortfile)

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errorLogger.Printf("encode response: %v", err)
	}
}

// WriteError is the single exit for failures. Anything that is not an
// *APIError is reported as a 500.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}
	if apiErr.Status >= http.StatusInternalServerError {
		errorLogger.Printf("%d %v", apiErr.Status, apiErr)
	}
	WriteJSON(w, apiErr.Status, map[string]interface{}{
		"success": false,
		"message": apiErr.Message,
	})
}

// DecodeJSON decodes a request body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return BadRequest("Invalid request body")
	}
	return nil
}
