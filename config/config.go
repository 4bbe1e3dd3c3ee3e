package config

import (
	"log"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultEnv      = "development"
	DefaultPort     = "8080"
	DefaultBaseURL  = "http://localhost:3000"
	DefaultSMTPPort = 587
)

type Config struct {
	Env   string
	Port  string
	DBURL string

	// Secret used to sign session tokens. May be empty; the token service
	// surfaces the configuration error on first use.
	JWTSecret string

	// Public base URL used to build verification and reset links.
	BaseURL string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load reads config/.env.dev or config/.env.prod depending on ENV, with
// real environment variables taking precedence over file values.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", DefaultEnv)
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("CLIENT_URL", DefaultBaseURL)
	v.SetDefault("SMTP_PORT", DefaultSMTPPort)
	v.SetDefault("SMTP_FROM", "no-reply@localhost")

	env := v.GetString("ENV")
	suffix := "dev"
	if env == "production" {
		suffix = "prod"
	}

	v.SetConfigFile(filepath.Join("config", ".env."+suffix))
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		// The file is optional; plain environment configuration is fine.
		log.Printf("config: no .env.%s file loaded: %v", suffix, err)
	}

	cfg := &Config{
		Env:       env,
		Port:      v.GetString("PORT"),
		DBURL:     v.GetString("DB_URL"),
		JWTSecret: v.GetString("JWT_SECRET"),
		BaseURL:   v.GetString("CLIENT_URL"),
		SMTPHost:  v.GetString("SMTP_HOST"),
		SMTPPort:  v.GetInt("SMTP_PORT"),
		SMTPUser:  v.GetString("SMTP_USER"),
		SMTPPass:  v.GetString("SMTP_PASS"),
		SMTPFrom:  v.GetString("SMTP_FROM"),
	}

	if cfg.DBURL == "" {
		log.Fatalf("Missing required environment variable: DB_URL")
	}

	return cfg
}
