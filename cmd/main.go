package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JacquesDelfrate/auth-system/config"
	"github.com/JacquesDelfrate/auth-system/db"
	"github.com/JacquesDelfrate/auth-system/internal/auth/handler"
	repo "github.com/JacquesDelfrate/auth-system/internal/auth/repository/postgres"
	"github.com/JacquesDelfrate/auth-system/internal/auth/service"
	"github.com/JacquesDelfrate/auth-system/internal/mailer"
	"github.com/JacquesDelfrate/auth-system/internal/ratelimit"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	dbPool, err := db.NewPostgresPool(context.Background(), cfg.DBURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	userRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.JWTSecret)
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	userService := service.NewUserService(userRepo, tokenService, service.NewBcryptHasher(), smtpMailer, cfg.BaseURL, logger)
	limiter := ratelimit.New()
	authHandler := handler.NewAuthHandler(userService, tokenService, limiter, logger, cfg.Env == "production")

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
