package handler

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JacquesDelfrate/auth-system/internal/auth/domain"
	"github.com/JacquesDelfrate/auth-system/internal/auth/dto"
	"github.com/JacquesDelfrate/auth-system/internal/auth/service"
	autherror "github.com/JacquesDelfrate/auth-system/internal/errors"
	"github.com/JacquesDelfrate/auth-system/internal/ratelimit"
	"github.com/JacquesDelfrate/auth-system/pkg/constant"
)

var validate = validator.New()

var (
	loginPolicy = ratelimit.Policy{
		MaxAttempts:   constant.LoginMaxAttempts,
		Window:        constant.LoginWindow,
		BlockDuration: constant.LoginBlockDuration,
	}
	registerPolicy = ratelimit.Policy{
		MaxAttempts:   constant.RegisterMaxAttempts,
		Window:        constant.RegisterWindow,
		BlockDuration: constant.RegisterBlockDuration,
	}
)

type AuthHandler struct {
	userService  *service.UserService
	tokenService domain.TokenGenerator
	limiter      *ratelimit.Limiter
	log          *zap.Logger

	// Secure flag on the session cookie; on in production.
	secureCookies bool
}

func NewAuthHandler(
	userService *service.UserService,
	tokenService domain.TokenGenerator,
	limiter *ratelimit.Limiter,
	log *zap.Logger,
	secureCookies bool,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthHandler{
		userService:   userService,
		tokenService:  tokenService,
		limiter:       limiter,
		log:           log,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	identity := identityFor(constant.ScopeRegister, clientIP(c))

	res := h.limiter.Check(identity, registerPolicy)
	if !res.Allowed {
		h.log.Info("registration blocked by rate limit", zap.String("identity", identity))
		return tooManyAttempts(c, res, "registration")
	}

	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required fields",
		})
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	user, sessionToken, err := h.userService.Register(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrEmailAlreadyInUse):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "User already exists and is verified, please login",
			})
		case errors.Is(err, autherror.ErrUnverifiedUserExists):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "User already exists but is not verified, verification email sent",
			})
		case errors.Is(err, autherror.ErrMailDelivery):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error sending verification email, please try again",
			})
		default:
			h.log.Error("registration failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error creating user",
			})
		}
	}

	h.setSessionCookie(c, sessionToken)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully, please check your email for verification before logging in",
		"user":    toUserOutput(user),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	identity := identityFor(constant.ScopeLogin, clientIP(c))

	res := h.limiter.Check(identity, loginPolicy)
	if !res.Allowed {
		h.log.Info("login blocked by rate limit", zap.String("identity", identity))
		return tooManyAttempts(c, res, "login")
	}

	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required fields",
		})
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	user, sessionToken, err := h.userService.Login(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found - Please sign up first",
			})
		case errors.Is(err, autherror.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":             "Invalid password",
				"remainingAttempts": res.RemainingAttempts,
			})
		default:
			h.log.Error("login failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error logging in",
			})
		}
	}

	// A successful login fully resets throttling for this identity.
	h.limiter.RecordSuccess(identity)
	h.setSessionCookie(c, sessionToken)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Login successful",
		"user":    toUserOutput(user),
	})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var input dto.VerifyEmailInput
	if err := c.BodyParser(&input); err != nil || input.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}

	_, err := h.userService.VerifyEmail(c.Context(), input.Token)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrVerificationTokenNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invalid email verification token",
			})
		case errors.Is(err, autherror.ErrVerificationTokenExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Token expired - Ask for a new one",
			})
		default:
			h.log.Error("email verification failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error verifying email",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Email verified successfully",
	})
}

func (h *AuthHandler) SendVerification(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	err := h.userService.SendVerification(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		case errors.Is(err, autherror.ErrEmailAlreadyVerified):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Email already verified",
			})
		case errors.Is(err, autherror.ErrMailDelivery):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error sending verification email, please try again",
			})
		default:
			h.log.Error("send verification failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to send verification email",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Verification email sent successfully",
	})
}

func (h *AuthHandler) RequestPassword(c *fiber.Ctx) error {
	var input dto.RequestPasswordResetInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required fields",
		})
	}

	err := h.userService.RequestPasswordReset(c.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		case errors.Is(err, autherror.ErrMailDelivery):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error sending password reset email",
			})
		default:
			h.log.Error("password reset request failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error sending password reset email",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Password reset email sent successfully",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required fields",
		})
	}

	_, err := h.userService.ResetPassword(c.Context(), input.Token, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrResetTokenNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Token not found",
			})
		case errors.Is(err, autherror.ErrResetTokenExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Token expired",
			})
		default:
			h.log.Error("password reset failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error resetting password",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Password reset successfully",
	})
}

func (h *AuthHandler) RateLimitStatus(c *fiber.Ctx) error {
	ip := clientIP(c)
	remaining := h.limiter.RemainingAttempts(identityFor(constant.ScopeLogin, ip), loginPolicy)

	out := dto.RateLimitStatusOutput{RemainingAttempts: remaining}
	if ip != "unknown" {
		out.ClientIP = ip
	}

	return c.JSON(out)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	user, err := h.userService.GetProfile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, autherror.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.JSON(toUserOutput(user))
}

// RequireAuth validates the session cookie. Missing, malformed and expired
// tokens are all reported the same way.
func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := h.tokenService.Verify(c.Cookies(constant.SessionCookieName))
		if err != nil {
			if errors.Is(err, autherror.ErrMissingSigningSecret) {
				h.log.Error("session verification unavailable", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
				})
			}

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.SessionCookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   int(constant.SessionTokenTTL / time.Second),
	})
}

// tooManyAttempts writes the 429 response with the retry metadata the
// limiter produced: remaining cooldown, window reset and block deadline.
func tooManyAttempts(c *fiber.Ctx, res ratelimit.Result, action string) error {
	retryAfter := res.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Until(res.WindowResetAt)
	}
	minutes := int(math.Ceil(retryAfter.Minutes()))

	c.Set("X-RateLimit-Remaining", "0")
	c.Set("X-RateLimit-Reset", strconv.FormatInt(res.WindowResetAt.UnixMilli(), 10))
	c.Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))

	body := fiber.Map{
		"error": fmt.Sprintf("Too many %s attempts. Please try again in %d minutes.", action, minutes),
	}
	if !res.BlockedUntil.IsZero() {
		body["blockedUntil"] = res.BlockedUntil.UnixMilli()
	}

	return c.Status(fiber.StatusTooManyRequests).JSON(body)
}

// clientIP prefers forwarded-address headers in priority order so the
// throttle keys on the real caller behind a proxy.
func clientIP(c *fiber.Ctx) string {
	if v := c.Get("X-Forwarded-For"); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			return strings.TrimSpace(v[:i])
		}
		return strings.TrimSpace(v)
	}
	if v := c.Get("X-Real-Ip"); v != "" {
		return v
	}
	if v := c.Get("CF-Connecting-Ip"); v != "" {
		return v
	}

	return "unknown"
}

func identityFor(scope, ip string) string {
	return scope + ":" + ip
}

func toUserOutput(u *domain.User) dto.UserOutput {
	return dto.UserOutput{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
