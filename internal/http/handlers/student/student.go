// Package student contains the HTTP handler for competition registration.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// The router expects func(http.ResponseWriter, *http.Request), which has
// no room for a database handle. Register accepts its dependencies once
// at startup and returns a handler that closes over them:
//
//	router.HandleFunc("POST /api/students/register", student.Register(store))
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/student-registration/internal/storage"
	"github.com/aanand-mishra/student-registration/internal/types"
	"github.com/aanand-mishra/student-registration/internal/utils/response"
	"github.com/aanand-mishra/student-registration/internal/validation"
)

const (
	msgRegistered = "Student registered successfully for competition"
	msgDuplicate  = "A student with this email is already registered"
	msgFailed     = "Failed to register student"
	msgTooLarge   = "Request body is too large"
)

// ─────────────────────────────────────────────────────────────────────────────
// Register handles POST /api/students/register
//
// Request body (JSON):
//
//	{ "name": "Jane Doe", "email": "jane@example.com", "birthDate": "2008-01-01",
//	  "state": "Cairo", "country": "Egypt", "school": "Alpha School", "grade": "10" }
//
// Responses:
//
//	201 Created      — { success, message, data: <stored record> }
//	400 Bad Request  — empty body, malformed JSON, or failed validation
//	409 Conflict     — a record with the same normalized email exists
//	413 Too Large    — body exceeded the configured limit
//	500 Internal     — storage failure, with the error text for diagnostics
//
// ─────────────────────────────────────────────────────────────────────────────
func Register(store storage.Storage) http.HandlerFunc {
	validate := validation.New()

	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("registering a student")

		// ── Step 1: Decode and normalize ──────────────────────────────
		// Unknown fields (gender, phase1..5 from older forms) are ignored.
		var req types.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDecodeError(w, err)
			return
		}
		req.Normalize()

		// ── Step 2: Validate against the record schema ───────────────
		if err := validate.Struct(req); err != nil {
			if fieldErrs := validation.Errors(err); fieldErrs != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(fieldErrs))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(msgFailed, err))
			return
		}

		// ── Step 3: Uniqueness pre-check ──────────────────────────────
		_, err := store.GetStudentByEmail(r.Context(), req.Email)
		switch {
		case err == nil:
			slog.Info("duplicate registration rejected", slog.String("email", req.Email))
			response.WriteJSON(w, http.StatusConflict, response.Fail(msgDuplicate))
			return
		case !errors.Is(err, storage.ErrNotFound):
			fail(w, err)
			return
		}

		// ── Step 4: Build the record with defaults and persist ────────
		student, err := req.NewStudent(time.Now())
		if err != nil {
			fail(w, err)
			return
		}

		created, err := store.CreateStudent(r.Context(), student)
		if errors.Is(err, storage.ErrDuplicateEmail) {
			// Lost the race with a concurrent registration for this email.
			slog.Info("duplicate registration rejected by storage", slog.String("email", req.Email))
			response.WriteJSON(w, http.StatusConflict, response.Fail(msgDuplicate))
			return
		}
		if err != nil {
			fail(w, err)
			return
		}

		slog.Info("student registered",
			slog.String("id", created.ID),
			slog.String("email", created.Email))

		response.WriteJSON(w, http.StatusCreated, response.Success(msgRegistered, created))
	}
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.Fail(msgTooLarge))
	case errors.Is(err, io.EOF):
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError("Validation failed", errors.New("request body is empty")))
	default:
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError("Validation failed", err))
	}
}

func fail(w http.ResponseWriter, err error) {
	slog.Error("registration failed", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(msgFailed, err))
}
