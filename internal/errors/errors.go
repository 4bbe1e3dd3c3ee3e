package errors

import (
	"errors"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrEmailAlreadyVerified = errors.New("email already verified")

	// Returned by Register when the email belongs to an unverified account;
	// a fresh verification token has already been issued and mailed.
	ErrUnverifiedUserExists = errors.New("user exists but is not verified")

	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token expired")
	ErrResetTokenNotFound        = errors.New("reset token not found")
	ErrResetTokenExpired         = errors.New("reset token expired")

	ErrSessionTokenInvalid = errors.New("session token invalid")

	// Configuration error: the process cannot sign sessions without a secret.
	ErrMissingSigningSecret = errors.New("signing secret is not configured")

	// Mail delivery failures are transient and distinct from token issuance
	// errors; callers may safely re-request issuance.
	ErrMailDelivery = errors.New("mail delivery failed")
)
