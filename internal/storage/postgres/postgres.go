// Package postgres implements storage.Storage on PostgreSQL through
// database/sql and the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aanand-mishra/student-registration/internal/config"
	"github.com/aanand-mishra/student-registration/internal/storage"
	"github.com/aanand-mishra/student-registration/internal/types"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id                UUID         PRIMARY KEY,
		full_name         VARCHAR(100) NOT NULL,
		email             VARCHAR(254) NOT NULL,
		birth_date        DATE         NOT NULL,
		phone             VARCHAR(20)  NOT NULL DEFAULT '',
		state             VARCHAR(50)  NOT NULL,
		country           VARCHAR(50)  NOT NULL,
		school_name       VARCHAR(100) NOT NULL,
		grade             VARCHAR(20)  NOT NULL,
		registration_date TIMESTAMPTZ  NOT NULL DEFAULT now(),
		status            TEXT         NOT NULL DEFAULT 'registered'
			CHECK (status IN ('registered', 'confirmed', 'participated', 'withdrawn')),
		created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS students_email_key ON students (lower(email));
	CREATE INDEX IF NOT EXISTS students_state_idx       ON students (state);
	CREATE INDEX IF NOT EXISTS students_country_idx     ON students (country);
	CREATE INDEX IF NOT EXISTS students_school_name_idx ON students (school_name);
	CREATE INDEX IF NOT EXISTS students_status_idx      ON students (status);
`

const columns = `id, full_name, email, birth_date, phone, state, country,
	school_name, grade, registration_date, status, created_at, updated_at`

// Postgres is the PostgreSQL implementation of storage.Storage.
type Postgres struct {
	Db *sql.DB
}

// New connects to cfg.Storage.DSN, verifies the connection and applies
// the schema.
func New(cfg *config.Config) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	p, err := NewWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewWithDB applies the schema on an already opened pool.
func NewWithDB(ctx context.Context, db *sql.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}
	return &Postgres{Db: db}, nil
}

// GetStudentByEmail fetches the registration whose normalized email matches.
func (p *Postgres) GetStudentByEmail(ctx context.Context, email string) (types.Student, error) {
	row := p.Db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM students WHERE lower(email) = $1 LIMIT 1",
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

// CreateStudent inserts the record. A concurrent registration that
// committed first surfaces here as a unique_violation on students_email_key.
func (p *Postgres) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	student.ID = uuid.NewString()
	student.Email = types.NormalizeEmail(student.Email)

	_, err := p.Db.ExecContext(ctx,
		"INSERT INTO students ("+columns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
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
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return student, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.Db.Close()
}
