// Package identity resolves bearer tokens into principals. The token issuer
// is an external identity service; this package only verifies what it signs.
package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
)

// Claims are the identity service's access token claims. Subject carries the
// numeric user id.
type Claims struct {
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	IsActive  bool   `json:"is_active"`
	IsInsurer bool   `json:"is_insurer"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HMAC-signed access tokens.
type JWTResolver struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTResolver(signingKey, issuer string) *JWTResolver {
	return &JWTResolver{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// Resolve fails with CodeUnauthorized for any token it cannot trust.
func (r *JWTResolver) Resolve(_ context.Context, token string) (domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return r.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	userID, err := domain.ParseUserID(claims.Subject)
	if err != nil {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	return domain.Principal{
		UserID:    userID,
		Email:     domain.NormalizeEmail(claims.Email),
		IsAdmin:   claims.IsAdmin,
		IsActive:  claims.IsActive,
		IsInsurer: claims.IsInsurer,
	}, nil
}

// IssueToken signs a token for p. The identity service owns issuance in
// production; this is used by the token command and tests.
func (r *JWTResolver) IssueToken(p domain.Principal, expiresIn time.Duration) (string, error) {
	now := r.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:     p.Email,
		IsAdmin:   p.IsAdmin,
		IsActive:  p.IsActive,
		IsInsurer: p.IsInsurer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(p.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    r.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(r.signingKey)
}
