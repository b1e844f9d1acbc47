package models

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Normalize trims identity fields. The password is taken verbatim.
func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

// Validate checks presence first, then role, then email syntax.
func (r *RegisterRequest) Validate() (domain.Role, error) {
	if r == nil {
		return "", dErrors.New(dErrors.CodeInvalidRequest, "request is required")
	}
	if r.Name == "" || r.Email == "" || r.Password == "" || r.Role == "" {
		return "", dErrors.New(dErrors.CodeMissingField, "All fields are required")
	}
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return "", err
	}
	if !govalidator.IsEmail(r.Email) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "Invalid email address")
	}
	return role, nil
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Normalize trims identity fields. The password is taken verbatim.
func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

// Validate only checks presence. An unsupported role simply matches nobody.
func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidRequest, "request is required")
	}
	if r.Email == "" || r.Password == "" || r.Role == "" {
		return dErrors.New(dErrors.CodeMissingField, "All fields are required")
	}
	return nil
}
