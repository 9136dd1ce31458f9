// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// Importing go-sqlite3 registers the "sqlite3" driver with database/sql
// as a side effect; its Error type is also used to detect constraint
// violations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/student-registration/internal/config"
	"github.com/aanand-mishra/student-registration/internal/storage"
	"github.com/aanand-mishra/student-registration/internal/types"
)

// schema is idempotent — safe to run on every startup.
//
// The unique index is on lower(email), not email, so the invariant holds
// even for rows written by something that skipped normalization.
const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id                TEXT     PRIMARY KEY,
		full_name         TEXT     NOT NULL CHECK (length(full_name) <= 100),
		email             TEXT     NOT NULL,
		birth_date        DATE     NOT NULL,
		phone             TEXT     NOT NULL DEFAULT '' CHECK (length(phone) <= 20),
		state             TEXT     NOT NULL CHECK (length(state) <= 50),
		country           TEXT     NOT NULL CHECK (length(country) <= 50),
		school_name       TEXT     NOT NULL CHECK (length(school_name) <= 100),
		grade             TEXT     NOT NULL CHECK (length(grade) <= 20),
		registration_date DATETIME NOT NULL,
		status            TEXT     NOT NULL DEFAULT 'registered'
			CHECK (status IN ('registered', 'confirmed', 'participated', 'withdrawn')),
		created_at        DATETIME NOT NULL,
		updated_at        DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS students_email_key ON students (lower(email));
	CREATE INDEX IF NOT EXISTS students_state_idx       ON students (state);
	CREATE INDEX IF NOT EXISTS students_country_idx     ON students (country);
	CREATE INDEX IF NOT EXISTS students_school_name_idx ON students (school_name);
	CREATE INDEX IF NOT EXISTS students_status_idx      ON students (status);
`

const columns = `id, full_name, email, birth_date, phone, state, country,
	school_name, grade, registration_date, status, created_at, updated_at`

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at cfg.Storage.DSN, creates the students
// table and its indexes if they do not already exist, and returns a
// ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows one writer at a time. A single connection queues
	// writers inside database/sql instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetStudentByEmail fetches the registration whose normalized email matches.
//
// QueryRow returns exactly one row. If the query finds no match it does NOT
// return nil — sql.ErrNoRows surfaces only when you call Scan.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) GetStudentByEmail(ctx context.Context, email string) (types.Student, error) {
	row := s.Db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM students WHERE lower(email) = ? LIMIT 1",
		types.NormalizeEmail(email),
	)

	var student types.Student
	err := row.Scan(
		&student.ID,
		&student.FullName,
		&student.Email,
		&student.BirthDate,
		&student.Phone,
		&student.State,
		&student.Country,
		&student.SchoolName,
		&student.Grade,
		&student.RegistrationDate,
		&student.Status,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByEmail: scan: %w", err)
	}

	return student, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts a new row into the students table.
//
// Placeholders (?) keep user input out of the SQL text: the driver sends
// the statement and the values separately.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	student.ID = uuid.NewString()
	student.Email = types.NormalizeEmail(student.Email)

	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO students ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		student.ID,
		student.FullName,
		student.Email,
		student.BirthDate,
		student.Phone,
		student.State,
		student.Country,
		student.SchoolName,
		student.Grade,
		student.RegistrationDate,
		string(student.Status),
		student.CreatedAt,
		student.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return student, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
