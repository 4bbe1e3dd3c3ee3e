package constant

import "time"

const (
	// Session tokens are stateless JWTs with a fixed lifetime.
	SessionTokenTTL   = 24 * time.Hour
	SessionCookieName = "auth-token"

	// Verification and password-reset secrets live on the user row.
	CredentialTokenTTL = 24 * time.Hour
	// 32 random bytes, rendered as 64 hex characters.
	CredentialSecretBytes = 32

	// Login throttle: 5 attempts per 15 minutes, 30 minute block.
	LoginMaxAttempts   = 5
	LoginWindow        = 15 * time.Minute
	LoginBlockDuration = 30 * time.Minute

	// Registration throttle is stricter: 3 attempts per hour, 1 hour block.
	RegisterMaxAttempts   = 3
	RegisterWindow        = time.Hour
	RegisterBlockDuration = time.Hour

	// Identity namespaces so login and registration do not share a budget.
	ScopeLogin    = "login"
	ScopeRegister = "register"

	BcryptCost = 10
)
