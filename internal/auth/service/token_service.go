package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/JacquesDelfrate/auth-system/internal/auth/domain"
	autherror "github.com/JacquesDelfrate/auth-system/internal/errors"
	"github.com/JacquesDelfrate/auth-system/pkg/constant"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies stateless session tokens and generates
// the opaque secrets used for email verification and password reset.
type TokenService struct {
	SigningSecret   string
	SessionTokenTTL time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func NewTokenService(signingSecret string) *TokenService {
	return &TokenService{
		SigningSecret:   signingSecret,
		SessionTokenTTL: constant.SessionTokenTTL,
	}
}

// Generate signs a session token embedding the user's identity claims. The
// expiry is baked into the signature; no server-side record is kept.
func (ts *TokenService) Generate(userID, email string) (string, time.Time, error) {
	if ts.SigningSecret == "" {
		return "", time.Time{}, autherror.ErrMissingSigningSecret
	}

	now := time.Now()
	expiresAt := now.Add(ts.SessionTokenTTL)

	claims := JWTCustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.SigningSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// Verify parses and validates a session token. Missing tokens, bad
// signatures and lapsed expiry all collapse into ErrSessionTokenInvalid so
// callers cannot leak which check failed.
func (ts *TokenService) Verify(tokenString string) (*domain.SessionClaims, error) {
	if ts.SigningSecret == "" {
		return nil, autherror.ErrMissingSigningSecret
	}
	if tokenString == "" {
		return nil, autherror.ErrSessionTokenInvalid
	}

	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.SigningSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, autherror.ErrSessionTokenInvalid
	}

	return &domain.SessionClaims{UserID: claims.UserID, Email: claims.Email}, nil
}

// NewSecret returns a fresh opaque credential secret: 32 random bytes as
// 64 hex characters.
func (ts *TokenService) NewSecret() (string, error) {
	buf := make([]byte, constant.CredentialSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
