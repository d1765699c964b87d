package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	ServiceName string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int

	JWTSecret   string
	AdminUserID string
	SweepToken  string

	AMQPURL   string
	RedisAddr string

	SignerBaseURL string
	SignerAPIKey  string

	Locale       string
	CurrencyCode string

	ProofWindow        time.Duration
	SweepInterval      time.Duration
	SettlePollInterval time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		ServiceName:        getEnv("SERVICE_NAME", "escrow-api"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 1),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		AdminUserID:        os.Getenv("ADMIN_USER_ID"),
		SweepToken:         os.Getenv("SWEEP_TOKEN"),
		AMQPURL:            os.Getenv("AMQP_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		SignerBaseURL:      os.Getenv("SIGNER_BASE_URL"),
		SignerAPIKey:       os.Getenv("SIGNER_API_KEY"),
		Locale:             getEnv("LOCALE", "en"),
		CurrencyCode:       getEnv("CURRENCY_CODE", "USD"),
		ProofWindow:        24 * time.Hour * time.Duration(getEnvInt("PROOF_WINDOW_DAYS", 5)),
		SweepInterval:      time.Minute * time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 60)),
		SettlePollInterval: time.Second * time.Duration(getEnvInt("SETTLE_POLL_SECONDS", 5)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.AdminUserID == "" {
		return nil, fmt.Errorf("ADMIN_USER_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
