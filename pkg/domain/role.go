package domain

import dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"

// Role is the coarse permission level of an actor.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries (token claims, CLI flags);
// direct casting bypasses validation.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleUser   Role = "user"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// validRoles is the single source of truth for valid roles.
var validRoles = map[Role]bool{
	RoleGuest:  true,
	RoleUser:   true,
	RoleMember: true,
	RoleAdmin:  true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}
