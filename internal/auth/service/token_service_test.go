package service

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherror "github.com/JacquesDelfrate/auth-system/internal/errors"
	"github.com/JacquesDelfrate/auth-system/pkg/constant"
)

func TestNewTokenService(t *testing.T) {
	ts := NewTokenService("signing-secret")

	assert.NotNil(t, ts)
	assert.Equal(t, "signing-secret", ts.SigningSecret)
	assert.Equal(t, constant.SessionTokenTTL, ts.SessionTokenTTL)
}

func TestTokenService_Generate(t *testing.T) {
	tests := []struct {
		name          string
		signingSecret string
		userID        string
		email         string
		expectError   error
	}{
		{
			name:          "successful token generation",
			signingSecret: "test-signing-secret-123",
			userID:        "user-123",
			email:         "test@example.com",
		},
		{
			name:          "missing signing secret is a configuration error",
			signingSecret: "",
			userID:        "user-123",
			email:         "test@example.com",
			expectError:   autherror.ErrMissingSigningSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTokenService(tt.signingSecret)

			token, expiresAt, err := ts.Generate(tt.userID, tt.email)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Empty(t, token)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, 5*time.Second)

			// Inspect the claims baked into the signature.
			claims := &JWTCustomClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(tt.signingSecret), nil
			})
			require.NoError(t, err)
			require.True(t, parsed.Valid)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.email, claims.Email)
		})
	}
}

func TestTokenService_Verify(t *testing.T) {
	ts := NewTokenService("test-signing-secret-123")

	t.Run("round trip", func(t *testing.T) {
		token, _, err := ts.Generate("user-123", "test@example.com")
		require.NoError(t, err)

		claims, err := ts.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
		assert.Equal(t, "test@example.com", claims.Email)
	})

	t.Run("empty token", func(t *testing.T) {
		claims, err := ts.Verify("")
		assert.ErrorIs(t, err, autherror.ErrSessionTokenInvalid)
		assert.Nil(t, claims)
	})

	t.Run("garbage token", func(t *testing.T) {
		claims, err := ts.Verify("not-a-jwt")
		assert.ErrorIs(t, err, autherror.ErrSessionTokenInvalid)
		assert.Nil(t, claims)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("a-different-secret")
		token, _, err := other.Generate("user-123", "test@example.com")
		require.NoError(t, err)

		claims, err := ts.Verify(token)
		assert.ErrorIs(t, err, autherror.ErrSessionTokenInvalid)
		assert.Nil(t, claims)
	})

	t.Run("expired token reports the same invalid error", func(t *testing.T) {
		expired := NewTokenService("test-signing-secret-123")
		expired.SessionTokenTTL = -time.Hour

		token, _, err := expired.Generate("user-123", "test@example.com")
		require.NoError(t, err)

		claims, err := ts.Verify(token)
		assert.ErrorIs(t, err, autherror.ErrSessionTokenInvalid)
		assert.Nil(t, claims)
	})

	t.Run("wrong signing algorithm", func(t *testing.T) {
		// An unsigned token must not pass HMAC verification.
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, JWTCustomClaims{UserID: "user-123"})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		claims, err := ts.Verify(token)
		assert.ErrorIs(t, err, autherror.ErrSessionTokenInvalid)
		assert.Nil(t, claims)
	})
}

func TestTokenService_NewSecret(t *testing.T) {
	ts := NewTokenService("secret")

	first, err := ts.NewSecret()
	require.NoError(t, err)
	second, err := ts.NewSecret()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)

	_, err = hex.DecodeString(first)
	assert.NoError(t, err)
}
