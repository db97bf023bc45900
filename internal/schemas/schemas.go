// Package schemas validates form input locally, before any request is
// issued. Failures are reported per field so callers can render them inline.
package schemas

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/classtime-project/classtime-client/internal/accounts"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldErrors maps a field's JSON name to a message suitable for inline
// display.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fe))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, fe[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateRegister checks a registration form, including the school-number
// rule: students and teachers must supply one, other roles must not.
func ValidateRegister(req *accounts.RegisterRequest) error {
	fieldErrs := run(req)

	if _, conflict := fieldErrs["school_num"]; !conflict {
		if req.Role.SchoolPersonnel() && req.SchoolNum == "" {
			fieldErrs["school_num"] = fmt.Sprintf("%s must provide a school number", req.Role)
		}
		if req.Role.Valid() && !req.Role.SchoolPersonnel() && req.SchoolNum != "" {
			fieldErrs["school_num"] = fmt.Sprintf("%s should not provide a school number", req.Role)
		}
	}

	if len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}

func ValidateLogin(req *accounts.LoginRequest) error {
	if fieldErrs := run(req); len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}

func ValidateResetPassword(req *accounts.ResetPasswordRequest) error {
	if fieldErrs := run(req); len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}

func ValidateUpdateProfile(req *accounts.UpdateProfileRequest) error {
	if fieldErrs := run(req); len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}

func run(v any) FieldErrors {
	fieldErrs := FieldErrors{}

	err := validate.Struct(v)
	if err == nil {
		return fieldErrs
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fieldErrs["_"] = err.Error()
		return fieldErrs
	}

	for _, fe := range validationErrs {
		fieldErrs[jsonName(fe.Field())] = message(fe)
	}
	return fieldErrs
}

// jsonName converts the Go field name reported by the validator to the
// snake_case name used in the form payloads.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	// acronyms come out as p_n_t_s etc; none appear in the payload fields
	return b.String()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in international format"
	case "alpha":
		return "must contain letters only"
	case "number":
		return "must contain digits only"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
