// Package accounts defines the user model and the request payloads exchanged
// with the classtime account API.
package accounts

import "github.com/google/uuid"

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleTeacher  UserRole = "teacher"
	RoleGuardian UserRole = "guardian"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleGuardian, RoleAdmin:
		return true
	}
	return false
}

// SchoolPersonnel reports whether the role carries a school number
// (students and teachers supply one, guardians and admins must not).
func (r UserRole) SchoolPersonnel() bool {
	return r == RoleStudent || r == RoleTeacher
}

type UserGender string

const (
	GenderMale   UserGender = "male"
	GenderFemale UserGender = "female"
	GenderOther  UserGender = "other"
	GenderPNTS   UserGender = "prefer_not_to_say"
)

func (g UserGender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPNTS:
		return true
	}
	return false
}

// User is the public account record returned by the API (no credentials).
type User struct {
	ID         uuid.UUID  `json:"id"`
	Role       UserRole   `json:"role"`
	FirstName  string     `json:"first_name"`
	MiddleName string     `json:"middle_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Phone      string     `json:"phone"`
	Gender     UserGender `json:"gender"`
	Email      string     `json:"email"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	SchoolNum  string     `json:"school_num,omitempty"`
}

// FullName joins the populated name fields.
func (u *User) FullName() string {
	name := u.FirstName
	if u.MiddleName != "" {
		name += " " + u.MiddleName
	}
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

// RegisterRequest completes an account registration. The email is bound to
// the registration token server-side; it is included here so the form can be
// validated locally before the request is issued.
type RegisterRequest struct {
	Role       UserRole   `json:"role" validate:"required,oneof=student teacher guardian"`
	FirstName  string     `json:"first_name" validate:"required,max=128,alpha"`
	MiddleName string     `json:"middle_name,omitempty" validate:"omitempty,max=128,alpha"`
	LastName   string     `json:"last_name,omitempty" validate:"omitempty,max=128,alpha"`
	Phone      string     `json:"phone" validate:"required,e164"`
	Gender     UserGender `json:"gender" validate:"required,oneof=male female other prefer_not_to_say"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password" validate:"required,min=8,max=64"`
	SchoolNum  string     `json:"school_num,omitempty" validate:"omitempty,number,max=16"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	ResetPwdToken string `json:"reset_pwd_token" validate:"required"`
	NewPassword   string `json:"new_password" validate:"required,min=8,max=64"`
}

// UpdateProfileRequest carries a partial profile edit; nil fields are left
// unchanged by the server.
type UpdateProfileRequest struct {
	FirstName  *string     `json:"first_name,omitempty" validate:"omitempty,max=128,alpha"`
	MiddleName *string     `json:"middle_name,omitempty" validate:"omitempty,max=128"`
	LastName   *string     `json:"last_name,omitempty" validate:"omitempty,max=128"`
	Phone      *string     `json:"phone,omitempty" validate:"omitempty,e164"`
	Gender     *UserGender `json:"gender,omitempty" validate:"omitempty,oneof=male female other prefer_not_to_say"`
}
