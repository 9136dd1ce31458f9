// Package validation builds the go-playground validator used for
// registration requests and turns its errors into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-registration/internal/types"
)

// emailPattern is deliberately simple: word characters separated by
// single dots or dashes, and a 2-3 letter final label.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// FieldError is one failed constraint, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// labels are the human names used in messages, keyed by JSON field name.
var labels = map[string]string{
	"name":      "Full name",
	"email":     "Email",
	"birthDate": "Birth date",
	"phone":     "Phone number",
	"state":     "State/Governorate",
	"country":   "Country",
	"school":    "School name",
	"grade":     "Grade/Year",
}

// New returns a validator with the registration rules installed.
// A *validator.Validate caches struct metadata and is safe for concurrent
// use, so callers should build one and share it.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report "birthDate" rather than "BirthDate" so field errors line up
	// with what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag name, which cannot happen here.
	_ = v.RegisterValidation("student_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		_, err := types.ParseBirthDate(fl.Field().String())
		return err == nil
	})

	return v
}

// Errors converts the error returned by Validate.Struct into field
// messages. It returns nil if err is not a validator.ValidationErrors.
func Errors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
	case "student_email":
		return "Please enter a valid email"
	case "birthdate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
