package auth

import (
	"testing"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	m, err := NewJWTManager("secret")
	require.NoError(t, err)

	token, err := m.Mint("user-1", time.Hour)
	require.NoError(t, err)

	owner, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)
}

func TestVerify_Rejects(t *testing.T) {
	m, _ := NewJWTManager("secret")
	other, _ := NewJWTManager("other-secret")

	foreign, err := other.Mint("user-1", time.Hour)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	expired, err := m.Mint("user-1", time.Hour)
	require.NoError(t, err)
	m.now = time.Now

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: "docmind"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-token",
		"foreign":  foreign,
		"expired":  expired,
		"alg none": unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			assert.True(t, apperr.IsKind(err, apperr.Auth), "got %v", err)
		})
	}
}

func TestMint_Validation(t *testing.T) {
	m, _ := NewJWTManager("secret")
	_, err := m.Mint("", time.Hour)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	_, err = m.Mint("u", 0)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = NewJWTManager(" ")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}
