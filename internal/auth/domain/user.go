package domain

import "time"

// User owns its current verification and reset secrets; there is no
// separate token table. A nil token pointer means no live token of that
// class exists.
type User struct {
	ID                       string
	Email                    string
	Name                     string
	PasswordHash             string
	EmailVerified            bool
	VerificationToken        *string
	VerificationTokenExpiry  *time.Time
	ResetPasswordToken       *string
	ResetPasswordTokenExpiry *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// SessionClaims are the identity claims embedded in a session token.
type SessionClaims struct {
	UserID string
	Email  string
}
