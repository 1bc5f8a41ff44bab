package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
)

func TestJWTResolver(t *testing.T) {
	ctx := context.Background()
	r := NewJWTResolver("test-key", "identity.test")
	p := domain.Principal{UserID: 42, Email: "Driver@Example.com", IsActive: true, IsInsurer: true}

	t.Run("round trip", func(t *testing.T) {
		token, err := r.IssueToken(p, time.Hour)
		require.NoError(t, err)

		got, err := r.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, domain.UserID(42), got.UserID)
		assert.Equal(t, "driver@example.com", got.Email)
		assert.True(t, got.IsActive)
		assert.True(t, got.IsInsurer)
		assert.False(t, got.IsAdmin)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := r.IssueToken(p, -time.Minute)
		require.NoError(t, err)
		_, err = r.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong key", func(t *testing.T) {
		token, err := NewJWTResolver("other-key", "identity.test").IssueToken(p, time.Hour)
		require.NoError(t, err)
		_, err = r.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewJWTResolver("test-key", "someone-else").IssueToken(p, time.Hour)
		require.NoError(t, err)
		_, err = r.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("non numeric subject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			IsActive: true,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "abc",
				Issuer:    "identity.test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("test-key"))
		require.NoError(t, err)
		_, err = r.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("alg none rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "identity.test"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = r.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := r.Resolve(ctx, "not.a.jwt")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
