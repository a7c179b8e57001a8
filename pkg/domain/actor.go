package domain

import (
	"strings"

	"github.com/fudign/kfa-sub000/pkg/email"
)

// Actor is the caller a request acts on behalf of. It is resolved once per
// request by the auth middleware and passed down through the context.
type Actor struct {
	UserID UserID
	Role   Role
	Name   string
	Email  string
}

// Guest returns the actor used for unauthenticated requests.
func Guest() Actor {
	return Actor{Role: RoleGuest}
}

// IsAuthenticated reports whether the actor is backed by a verified token.
func (a Actor) IsAuthenticated() bool {
	return a.Role != RoleGuest && a.Role != "" && !a.UserID.IsNil()
}

func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == RoleAdmin
}

// Owns reports whether the actor is the subject of a record owned by owner.
func (a Actor) Owns(owner UserID) bool {
	return a.IsAuthenticated() && !owner.IsNil() && a.UserID == owner
}

// DisplayName is the actor's name, falling back to one derived from the
// email address.
func (a Actor) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return email.NameFromAddress(a.Email)
}
