package testutil

import (
	"context"

	"github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// NewActor returns an authenticated actor with a fresh user id.
func NewActor(role domain.Role) domain.Actor {
	return domain.Actor{
		UserID: domain.NewUserID(),
		Role:   role,
		Name:   "Test " + string(role),
		Email:  string(role) + "@kfa.test",
	}
}

// ActorContext returns a background context acting as actor, as the auth
// middleware would leave it.
func ActorContext(actor domain.Actor) context.Context {
	return requestcontext.WithActor(context.Background(), actor)
}
