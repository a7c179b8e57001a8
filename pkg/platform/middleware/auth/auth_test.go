package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

type stubResolver struct {
	actor domain.Actor
	err   error
	token string
}

func (s *stubResolver) ResolveActor(token string) (domain.Actor, error) {
	s.token = token
	return s.actor, s.err
}

func serve(t *testing.T, resolver ActorResolver, header string) (*httptest.ResponseRecorder, *domain.Actor) {
	t.Helper()
	var seen *domain.Actor
	h := ResolveActor(resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			a := requestcontext.Actor(r.Context())
			seen = &a
		}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w, seen
}

func TestResolveActor(t *testing.T) {
	member := domain.Actor{UserID: domain.NewUserID(), Role: domain.RoleMember}

	t.Run("no header proceeds as guest", func(t *testing.T) {
		w, seen := serve(t, &stubResolver{}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.False(t, seen.IsAuthenticated())
	})

	t.Run("valid bearer token sets the actor", func(t *testing.T) {
		resolver := &stubResolver{actor: member}
		_, seen := serve(t, resolver, "Bearer abc.def.ghi")
		require.NotNil(t, seen)
		assert.Equal(t, member, *seen)
		assert.Equal(t, "abc.def.ghi", resolver.token)
	})

	t.Run("invalid token is 401", func(t *testing.T) {
		w, seen := serve(t, &stubResolver{err: errors.New("bad signature")}, "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, seen)
	})

	t.Run("non bearer scheme is 401", func(t *testing.T) {
		w, seen := serve(t, &stubResolver{actor: member}, "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, seen)
	})
}
