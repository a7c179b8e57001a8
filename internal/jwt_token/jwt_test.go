package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")

var actor = domain.Actor{
	UserID: domain.NewUserID(),
	Role:   domain.RoleMember,
	Name:   "Aida Bekova",
	Email:  "aida@example.kg",
}

var expiresIn = time.Hour

func Test_GenerateActorToken(t *testing.T) {
	token, err := jwtService.GenerateActorToken(actor, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID.String(), claims.Subject)
	assert.Equal(t, "member", claims.Role)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)

	got, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func Test_GenerateActorToken_RejectsGuest(t *testing.T) {
	_, err := jwtService.GenerateActorToken(domain.Guest(), expiresIn)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateActorToken(actor, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key", "someone-else")
	token, err := other.GenerateActorToken(actor, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: actor.UserID.String(), Issuer: "test-issuer"},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ActorResolver(t *testing.T) {
	token, err := jwtService.GenerateActorToken(actor, expiresIn)
	require.NoError(t, err)

	resolved, err := NewActorResolver(jwtService).ResolveActor(token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID, resolved.UserID)
	assert.True(t, resolved.IsAuthenticated())
}
