// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// Handlers depend only on this interface, so the SQLite and PostgreSQL
// backends are interchangeable and tests can pass a fake.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-registration/internal/types"
)

var (
	// ErrNotFound is returned when no registration matches the lookup.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateEmail is returned by CreateStudent when the database's
	// unique index on the normalized email rejects the insert. It is the
	// real guarantee against two concurrent registrations with one email.
	ErrDuplicateEmail = errors.New("a student with this email is already registered")
)

// Storage is the database contract.
type Storage interface {
	// GetStudentByEmail returns the registration whose normalized email
	// equals email, or ErrNotFound.
	GetStudentByEmail(ctx context.Context, email string) (types.Student, error)

	// CreateStudent assigns a new ID, inserts the record and returns it
	// as stored. Returns ErrDuplicateEmail on a uniqueness violation.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// Close releases the underlying connection pool.
	Close() error
}
