// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every response body shares one envelope so API consumers can always
// branch on "success" first:
//
//	{ "success": true,  "message": "...", "data": { ... } }
//	{ "success": false, "message": "...", "error": "..." }
//	{ "success": false, "message": "...", "errors": [ { "field": "...", "message": "..." } ] }
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/student-registration/internal/validation"
)

// Response is the standard envelope. Empty optional members are omitted.
type Response struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    any                     `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Success wraps a payload in a successful envelope.
func Success(message string, data any) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// Fail is a rejection without diagnostic detail, e.g. a conflict.
func Fail(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// GeneralError carries the underlying error text for diagnostics.
// Use this for unexpected errors (DB failures, decode errors, etc.)
func GeneralError(message string, err error) Response {
	return Response{
		Success: false,
		Message: message,
		Error:   err.Error(),
	}
}

// ValidationError lists every field that broke a schema constraint.
func ValidationError(errs []validation.FieldError) Response {
	return Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	}
}
