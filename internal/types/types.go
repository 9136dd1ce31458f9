// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and validation can all import types without depending
// on each other.
package types

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a competition registration.
// Only StatusRegistered is ever written by this service; the other
// values exist so records touched by other tools still load cleanly.
type Status string

const (
	StatusRegistered   Status = "registered"
	StatusConfirmed    Status = "confirmed"
	StatusParticipated Status = "participated"
	StatusWithdrawn    Status = "withdrawn"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusConfirmed, StatusParticipated, StatusWithdrawn:
		return true
	}
	return false
}

// Student represents one persisted competition registration.
//
// The json:"..." tags are the public field names returned to the client
// in the "data" object of a successful registration.
type Student struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	BirthDate        time.Time `json:"birthDate"`
	Phone            string    `json:"phone,omitempty"`
	State            string    `json:"state"`
	Country          string    `json:"country"`
	SchoolName       string    `json:"schoolName"`
	Grade            string    `json:"grade"`
	RegistrationDate time.Time `json:"registrationDate"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// RegisterRequest is the JSON body accepted by the registration endpoint.
//
// Struct tags serve two purposes:
//
//  1. json:"..."     — the wire names a client sends ("name", "school", …).
//  2. validate:"..." — rules checked by go-playground/validator. The
//     custom tags student_email and birthdate are registered in the
//     validation package.
//
// Gender and the Phase flags are accepted for compatibility with older
// clients but are not part of the stored record, so they are dropped.
type RegisterRequest struct {
	Name      string `json:"name"      validate:"required,max=100"`
	Email     string `json:"email"     validate:"required,student_email"`
	Gender    string `json:"gender,omitempty"`
	BirthDate string `json:"birthDate" validate:"required,birthdate"`
	Phone     string `json:"phone"     validate:"omitempty,max=20"`
	State     string `json:"state"     validate:"required,max=50"`
	Country   string `json:"country"   validate:"required,max=50"`
	School    string `json:"school"    validate:"required,max=100"`
	Grade     string `json:"grade"     validate:"required,max=20"`

	Phase1 bool `json:"phase1,omitempty"`
	Phase2 bool `json:"phase2,omitempty"`
	Phase3 bool `json:"phase3,omitempty"`
	Phase4 bool `json:"phase4,omitempty"`
	Phase5 bool `json:"phase5,omitempty"`
}

// Normalize trims every text field in place and lower-cases the email.
// It must run before validation so that length limits apply to the
// value that will actually be stored.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.Gender = strings.TrimSpace(r.Gender)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Phone = strings.TrimSpace(r.Phone)
	r.State = strings.TrimSpace(r.State)
	r.Country = strings.TrimSpace(r.Country)
	r.School = strings.TrimSpace(r.School)
	r.Grade = strings.TrimSpace(r.Grade)
}

// NewStudent builds the record to persist from a validated request,
// applying the defaults: status "registered" and registration date now.
// ID is left empty; the storage backend assigns it.
func (r RegisterRequest) NewStudent(now time.Time) (Student, error) {
	birthDate, err := ParseBirthDate(r.BirthDate)
	if err != nil {
		return Student{}, err
	}

	now = now.UTC()
	return Student{
		FullName:         r.Name,
		Email:            r.Email,
		BirthDate:        birthDate,
		Phone:            r.Phone,
		State:            r.State,
		Country:          r.Country,
		SchoolName:       r.School,
		Grade:            r.Grade,
		RegistrationDate: now,
		Status:           StatusRegistered,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NormalizeEmail is the identity used for duplicate detection:
// surrounding whitespace removed, lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// birthDateLayouts are tried in order. Plain dates are what the web form
// sends; full timestamps come from clients that serialise a JS Date.
var birthDateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
}

// ParseBirthDate parses a submitted birth date and truncates it to a
// calendar date in UTC.
func ParseBirthDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			y, m, d := t.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
