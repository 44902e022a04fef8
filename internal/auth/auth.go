// Package auth issues and checks the HS256 bearer tokens that carry the owner id.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Verifier interface {
	// Verify returns the owner id carried by a valid token.
	Verify(token string) (string, error)
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTManager(secret string) (*JWTManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return &JWTManager{secret: []byte(secret), issuer: config.AuthTokenIssuer, now: time.Now}, nil
}

func (m *JWTManager) Mint(userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperr.New(apperr.Validation, "user id is required")
	}
	if ttl <= 0 {
		return "", apperr.New(apperr.Validation, "ttl must be positive")
	}
	now := m.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", apperr.New(apperr.Auth, "missing bearer token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Wrap(apperr.Auth, "token expired", err)
		}
		return "", apperr.Wrap(apperr.Auth, "invalid token", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || claims.Subject == "" {
		return "", apperr.New(apperr.Auth, "token has no subject")
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
