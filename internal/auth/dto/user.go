package dto

import (
	"time"
)

type UserOutput struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type RateLimitStatusOutput struct {
	RemainingAttempts int    `json:"remainingAttempts"`
	ClientIP          string `json:"clientIP,omitempty"`
}
