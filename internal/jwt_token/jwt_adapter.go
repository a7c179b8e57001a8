package jwttoken

import "github.com/fudign/kfa-sub000/pkg/domain"

// ActorResolver adapts JWTService to the auth middleware.
type ActorResolver struct {
	service *JWTService
}

func NewActorResolver(service *JWTService) *ActorResolver {
	return &ActorResolver{service: service}
}

func (a *ActorResolver) ResolveActor(tokenString string) (domain.Actor, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return domain.Actor{}, err
	}
	return claims.Actor()
}
