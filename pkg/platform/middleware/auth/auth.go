// Package auth resolves the request actor from an optional bearer token.
// Requests without a token proceed as a guest; the access guard decides what
// a guest may do. A token that is present but invalid is always rejected.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	request "github.com/fudign/kfa-sub000/pkg/platform/middleware/request"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// ActorResolver validates a bearer token and returns the actor it names.
type ActorResolver interface {
	ResolveActor(tokenString string) (domain.Actor, error)
}

// ResolveActor places the actor in the request context.
func ResolveActor(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, domain.Guest())))
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			actor, err := resolver.ResolveActor(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}
