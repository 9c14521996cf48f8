package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParties = []string{"http://localhost:5173", "http://localhost:5174"}

func generateKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(sub, azp string) SessionClaims {
	now := time.Now()
	return SessionClaims{
		AuthorizedParty: azp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestNewVerifier_RequiresKey(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{})
	assert.Error(t, err)

	_, err = NewVerifier(VerifierConfig{PublicKeyPEM: "not a pem"})
	assert.Error(t, err)
}

func TestVerify_RS256(t *testing.T) {
	key, pemKey := generateKeyPair(t)
	v, err := NewVerifier(VerifierConfig{PublicKeyPEM: pemKey, AuthorizedParties: testParties})
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), signRS256(t, key, validClaims("user_123", "http://localhost:5173")))

	require.NoError(t, err)
	assert.Equal(t, "user_123", identity.UserID)
	assert.Equal(t, "http://localhost:5173", identity.AuthorizedParty)
}

func TestVerify_Rejects(t *testing.T) {
	key, pemKey := generateKeyPair(t)
	otherKey, _ := generateKeyPair(t)
	v, err := NewVerifier(VerifierConfig{PublicKeyPEM: pemKey, AuthorizedParties: testParties})
	require.NoError(t, err)

	expired := validClaims("u1", testParties[0])
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	hsToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("u1", testParties[0])).SignedString([]byte("secret"))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"мусор", "not.a.token", ErrTokenInvalid},
		{"истекший", signRS256(t, key, expired), ErrTokenInvalid},
		{"чужой ключ", signRS256(t, otherKey, validClaims("u1", testParties[0])), ErrTokenInvalid},
		{"другой алгоритм", hsToken, ErrTokenInvalid},
		{"без sub", signRS256(t, key, validClaims("", testParties[0])), ErrTokenInvalid},
		{"чужой azp", signRS256(t, key, validClaims("u1", "https://evil.example")), ErrUnauthorizedParty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := v.Verify(context.Background(), tc.token)
			assert.Nil(t, identity)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestVerify_HMACWithoutParties(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{HMACSecret: "dev-secret"})
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("dev-user", "")).SignedString([]byte("dev-secret"))
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", identity.UserID)
}

func TestTokenFromRequest(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{HMACSecret: "s"})
	require.NoError(t, err)

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		token, err := v.TokenFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	})

	t.Run("кука сессии", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "from-cookie"})
		token, err := v.TokenFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", token)
	})

	t.Run("неверный формат", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		_, err := v.TokenFromRequest(req)
		assert.ErrorIs(t, err, ErrTokenFormat)
	})

	t.Run("нет токена", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := v.TokenFromRequest(req)
		assert.ErrorIs(t, err, ErrTokenMissing)
	})
}
