package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	app.Post("/api/v1/register", h.Register)
	app.Post("/api/v1/login", h.Login)
	app.Post("/api/v1/verify-email", h.VerifyEmail)
	app.Post("/api/v1/request-password", h.RequestPassword)
	app.Post("/api/v1/reset-password", h.ResetPassword)
	app.Get("/api/v1/rate-limit-status", h.RateLimitStatus)

	// Session-protected endpoints
	protected := app.Group("/api/v1", h.RequireAuth())
	protected.Post("/send-verification", h.SendVerification)
	protected.Get("/me", h.Me)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
