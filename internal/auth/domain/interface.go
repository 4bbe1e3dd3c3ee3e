package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/JacquesDelfrate/auth-system/internal/auth/domain UserRepository
//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/JacquesDelfrate/auth-system/internal/auth/domain TokenGenerator
//go:generate mockgen -destination=../../mocks/mock_password_hasher.go -package=mocks github.com/JacquesDelfrate/auth-system/internal/auth/domain PasswordHasher
//go:generate mockgen -destination=../../mocks/mock_mailer.go -package=mocks github.com/JacquesDelfrate/auth-system/internal/auth/domain Mailer

import (
	"context"
	"time"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	Create(ctx context.Context, user *User) error
	SetVerificationToken(ctx context.Context, userID, token string, expiry time.Time) error
	// MarkEmailVerified sets email_verified and clears the verification
	// token and its expiry in a single update.
	MarkEmailVerified(ctx context.Context, userID string) error
	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error
	// UpdatePassword stores the new hash and clears the reset token and its
	// expiry in a single update.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type TokenGenerator interface {
	Generate(userID, email string) (string, time.Time, error)
	Verify(token string) (*SessionClaims, error)
	NewSecret() (string, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) bool
}

type Mailer interface {
	SendVerificationEmail(ctx context.Context, user *User, link string) error
	SendPasswordResetEmail(ctx context.Context, user *User, link string) error
}
