package domain

import dErrors "foodbridge/pkg/domain-errors"

// Role is one of the two fixed account kinds. Donors post food, NGOs claim it.
// Invariant: the value must be RoleDonor or RoleNGO.
//
// Usage: construct via ParseRole at trust boundaries; direct casting bypasses
// validation.
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
)

// ParseRole constructs a Role from external input.
//
// Errors: CodeMissingField when empty, CodeInvalidRole when unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeMissingField, "role is required")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidRole, "role must be donor or ngo")
	}
	return r, nil
}

// IsValid reports whether r is one of the supported roles.
func (r Role) IsValid() bool {
	return r == RoleDonor || r == RoleNGO
}

func (r Role) String() string { return string(r) }

// Actor is the verified caller of a request, as asserted by its session token.
type Actor struct {
	ID   UserID
	Name string
	Role Role
}
