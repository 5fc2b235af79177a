package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every environment-level setting the service recognizes.
// It is built once in main and passed down explicitly; nothing in the
// codebase reads the environment after Load returns.
type Config struct {
	Port  string
	DBURL string

	StripeSecretKey     string
	StripeWebhookSecret string
	ProMonthlyPriceID   string
	ProYearlyPriceID    string

	CronSecret  string
	GracePeriod time.Duration

	AppBaseURL   string
	SMTPPassword string
	JWTSecret    string
}

const defaultGraceDays = 7

func Load() Config {
	// A missing .env is fine in production, the variables come from the
	// real environment there.
	_ = godotenv.Load()

	return Config{
		Port:                getEnv("PORT", "8080"),
		DBURL:               os.Getenv("DB_URL"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		ProMonthlyPriceID:   os.Getenv("STRIPE_PRO_MONTHLY_PRICE_ID"),
		ProYearlyPriceID:    os.Getenv("STRIPE_PRO_YEARLY_PRICE_ID"),
		CronSecret:          os.Getenv("CRON_SECRET"),
		GracePeriod:         time.Duration(getEnvInt("GRACE_PERIOD_DAYS", defaultGraceDays)) * 24 * time.Hour,
		AppBaseURL:          getEnv("APP_BASE_URL", "https://soundbridge.live"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
