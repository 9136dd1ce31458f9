package student

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/student-registration/internal/config"
	"github.com/aanand-mishra/student-registration/internal/http/middleware"
	"github.com/aanand-mishra/student-registration/internal/storage"
	"github.com/aanand-mishra/student-registration/internal/storage/sqlite"
	"github.com/aanand-mishra/student-registration/internal/types"
)

// ── Fake storage ──

type fakeStorage struct {
	getResult types.Student
	getErr    error
	createErr error
	created   int
}

func (f *fakeStorage) GetStudentByEmail(_ context.Context, _ string) (types.Student, error) {
	return f.getResult, f.getErr
}

func (f *fakeStorage) CreateStudent(_ context.Context, s types.Student) (types.Student, error) {
	if f.createErr != nil {
		return types.Student{}, f.createErr
	}
	f.created++
	s.ID = "fake-id"
	return s, nil
}

func (f *fakeStorage) Close() error { return nil }

// ── Helpers ──

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func newSQLite(t *testing.T) *sqlite.SQLite {
	t.Helper()
	db, err := sqlite.New(&config.Config{Storage: config.Storage{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "registration.db"),
	}})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func janeDoe() map[string]any {
	return map[string]any{
		"name":      "Jane Doe",
		"email":     "jane@example.com",
		"birthDate": "2008-01-01",
		"state":     "Cairo",
		"country":   "Egypt",
		"school":    "Alpha School",
		"grade":     "10",
	}
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func post(t *testing.T, h http.Handler, body io.Reader) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/students/register", body)
	h.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// ── Tests ──

func TestRegisterCreatesRecord(t *testing.T) {
	db := newSQLite(t)
	h := Register(db)

	w, env := post(t, h, jsonBody(janeDoe()))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "Student registered successfully for competition", env.Message)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "Jane Doe", data["fullName"])
	assert.Equal(t, "jane@example.com", data["email"])
	assert.Equal(t, "Alpha School", data["schoolName"])
	assert.Equal(t, "registered", data["status"])
	assert.NotEmpty(t, data["registrationDate"])

	stored, err := db.GetStudentByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, data["id"], stored.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newSQLite(t)
	h := Register(db)

	w, _ := post(t, h, jsonBody(janeDoe()))
	require.Equal(t, http.StatusCreated, w.Code)

	again := janeDoe()
	again["email"] = "  Jane@Example.com "
	again["name"] = "Someone Else"

	w, env := post(t, h, jsonBody(again))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "A student with this email is already registered", env.Message)

	stored, err := db.GetStudentByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", stored.FullName)

	var count int
	require.NoError(t, db.Db.QueryRow("SELECT count(*) FROM students").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRegisterMissingCountry(t *testing.T) {
	fake := &fakeStorage{getErr: storage.ErrNotFound}
	body := janeDoe()
	delete(body, "country")

	w, env := post(t, Register(fake), jsonBody(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "country", env.Errors[0].Field)
	assert.Equal(t, "Country is required", env.Errors[0].Message)
	assert.Zero(t, fake.created)
}

func TestRegisterWhitespaceOnlyIsMissing(t *testing.T) {
	fake := &fakeStorage{getErr: storage.ErrNotFound}
	body := janeDoe()
	body["name"] = "   "

	w, env := post(t, Register(fake), jsonBody(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "name", env.Errors[0].Field)
}

func TestRegisterInvalidEmail(t *testing.T) {
	fake := &fakeStorage{getErr: storage.ErrNotFound}
	body := janeDoe()
	body["email"] = "not-an-email"

	w, env := post(t, Register(fake), jsonBody(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "Please enter a valid email", env.Errors[0].Message)
}

func TestRegisterIgnoresExtraFields(t *testing.T) {
	fake := &fakeStorage{getErr: storage.ErrNotFound}
	body := janeDoe()
	body["gender"] = "female"
	body["phase1"] = true
	body["favouriteColour"] = "blue"

	w, env := post(t, Register(fake), jsonBody(body))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, string(env.Data), "gender")
	assert.NotContains(t, string(env.Data), "phase1")
	assert.Equal(t, 1, fake.created)
}

func TestRegisterEmptyBody(t *testing.T) {
	w, env := post(t, Register(&fakeStorage{}), strings.NewReader(""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request body is empty", env.Error)
}

func TestRegisterMalformedJSON(t *testing.T) {
	w, env := post(t, Register(&fakeStorage{}), strings.NewReader(`{"name": `))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestRegisterBodyTooLarge(t *testing.T) {
	h := middleware.BodyLimit(16)(Register(&fakeStorage{}))

	w, env := post(t, h, jsonBody(janeDoe()))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, env.Success)
}

func TestRegisterLookupFailure(t *testing.T) {
	fake := &fakeStorage{getErr: errors.New("database is locked")}

	w, env := post(t, Register(fake), jsonBody(janeDoe()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to register student", env.Message)
	assert.Equal(t, "database is locked", env.Error)
}

func TestRegisterCreateFailure(t *testing.T) {
	fake := &fakeStorage{getErr: storage.ErrNotFound, createErr: errors.New("CreateStudent: exec: disk I/O error")}

	w, env := post(t, Register(fake), jsonBody(janeDoe()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to register student", env.Message)
	assert.Contains(t, env.Error, "disk I/O error")
}

func TestRegisterStorageConflictIsConflict(t *testing.T) {
	// The pre-check passed but the unique index rejected the insert.
	fake := &fakeStorage{getErr: storage.ErrNotFound, createErr: storage.ErrDuplicateEmail}

	w, env := post(t, Register(fake), jsonBody(janeDoe()))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "A student with this email is already registered", env.Message)
	assert.Empty(t, env.Error)
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	db := newSQLite(t)
	srv := httptest.NewServer(Register(db))
	defer srv.Close()

	const n = 20
	var created, conflicts atomic.Int32

	var g errgroup.Group
	for i := 0; i < n; i++ {
		body := janeDoe()
		if i%2 == 1 {
			body["email"] = "JANE@example.com"
		}
		g.Go(func() error {
			resp, err := http.Post(srv.URL, "application/json", jsonBody(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				b, _ := io.ReadAll(resp.Body)
				return errors.New("unexpected status " + resp.Status + ": " + string(b))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}
